package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

const pollBatchSize = 10

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(applicationID uuid.UUID)
}

// worker runs the structured review for new applications in the background
// and indexes their resumes for similarity search.
type worker struct {
	appRepo      repositories.ApplicationRepository
	reviews      ReviewService
	indexer      ResumeIndexer
	queue        chan uuid.UUID
	inFlight     sync.Map
	concurrency  int
	pollInterval time.Duration
	logger       *zap.Logger
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(
	appRepo repositories.ApplicationRepository,
	reviews ReviewService,
	indexer ResumeIndexer,
	concurrency int,
	pollInterval time.Duration,
	logger *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &worker{
		appRepo:      appRepo,
		reviews:      reviews,
		indexer:      indexer,
		queue:        make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.process(ctx, i+1)
	}

	if w.pollInterval > 0 {
		w.wg.Add(1)
		go w.pollUnanalyzed(ctx)
	}
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping worker")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Enqueue never blocks the caller. An application that does not fit in the
// queue stays unanalyzed and is picked up by the poller.
func (w *worker) Enqueue(applicationID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.logger.Warn("worker stopped, application not enqueued", zap.String("application_id", applicationID.String()))
		return
	default:
	}

	if _, loaded := w.inFlight.LoadOrStore(applicationID, struct{}{}); loaded {
		return
	}

	select {
	case w.queue <- applicationID:
		w.logger.Debug("application enqueued", zap.String("application_id", applicationID.String()))
	default:
		w.inFlight.Delete(applicationID)
		w.logger.Warn("analysis queue full, deferring to poller", zap.String("application_id", applicationID.String()))
	}
}

func (w *worker) process(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.handle(ctx, workerID, id)
			w.inFlight.Delete(id)
		}
	}
}

// handle indexes the resume and reviews it. The two steps are independent:
// a failed review still leaves the application searchable.
func (w *worker) handle(ctx context.Context, workerID int, id uuid.UUID) {
	log := w.logger.With(zap.Int("worker", workerID), zap.String("application_id", id.String()))
	session := models.SystemSession()

	if w.indexer != nil {
		w.index(ctx, log, session, id)
	}

	if _, err := w.reviews.ReviewApplication(ctx, session, id); err != nil {
		log.Warn("background review failed", zap.Error(err))
		return
	}
	log.Info("background review completed")
}

func (w *worker) index(ctx context.Context, log *zap.Logger, session models.Session, id uuid.UUID) {
	app, err := w.appRepo.FindByID(ctx, session, id)
	if err != nil {
		log.Warn("failed to load application for indexing", zap.Error(err))
		return
	}
	n, err := w.indexer.IndexApplication(ctx, app)
	if err != nil {
		log.Warn("failed to index resume", zap.Error(err))
		return
	}
	log.Debug("resume indexed", zap.Int("chunks", n))
}

func (w *worker) pollUnanalyzed(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			apps, err := w.appRepo.FindUnanalyzed(ctx, models.SystemSession(), pollBatchSize)
			if err != nil {
				w.logger.Warn("failed to fetch unanalyzed applications", zap.Error(err))
				continue
			}

			if len(apps) > 0 {
				w.logger.Info("found unanalyzed applications", zap.Int("count", len(apps)))
			}

			for _, app := range apps {
				w.Enqueue(app.ID)
			}
		}
	}
}
