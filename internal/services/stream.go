package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/logger"
)

// Fragment is one piece of a streamed insight. A fragment with Err set is
// always the last one on the channel.
type Fragment struct {
	Text string
	Err  error
}

type InsightStreamer interface {
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}

type ollamaStreamer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// maxChunkLine bounds a single NDJSON line.
const maxChunkLine = 1 << 20

// NewOllamaStreamer talks to a local model server's /api/generate endpoint.
// headerTimeout bounds the wait for the response headers only; the body is
// read until the server closes it or ctx is done.
func NewOllamaStreamer(baseURL, model string, headerTimeout time.Duration, logger *zap.Logger) InsightStreamer {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout

	return &ollamaStreamer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

func (s *ollamaStreamer) Stream(ctx context.Context, prompt string) (<-chan Fragment, error) {
	body, err := json.Marshal(generateRequest{Model: s.model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Analysis("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Analysis("local model unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Analysis(fmt.Sprintf("local model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(preview))), nil)
	}

	out := make(chan Fragment)
	go s.pump(ctx, resp.Body, out)

	return out, nil
}

// pump forwards each line's response text in arrival order. The stream ends
// when the server closes the connection.
func (s *ollamaStreamer) pump(ctx context.Context, body io.ReadCloser, out chan<- Fragment) {
	defer close(out)
	defer body.Close()

	send := func(f Fragment) bool {
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := bufio.NewReaderSize(body, 64*1024)

	for {
		line, oversized, err := readChunkLine(reader)
		if oversized {
			s.logger.Warn("skipping oversized stream fragment", zap.Int("limit", maxChunkLine))
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			var chunk generateChunk
			if jsonErr := json.Unmarshal(line, &chunk); jsonErr != nil {
				s.logger.Warn("skipping malformed stream fragment",
					zap.String("line", logger.TruncateForLog(string(line), 120)),
					zap.Error(jsonErr),
				)
			} else if chunk.Error != "" {
				send(Fragment{Err: apperr.Analysis("local model error: "+chunk.Error, nil)})
				return
			} else if chunk.Response != "" {
				if !send(Fragment{Text: chunk.Response}) {
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				send(Fragment{Err: apperr.Analysis("stream interrupted", err)})
			}
			return
		}
	}
}

// readChunkLine reads one newline-terminated line. A line longer than
// maxChunkLine is consumed to its end and reported as oversized with no data.
func readChunkLine(r *bufio.Reader) (line []byte, oversized bool, err error) {
	for {
		part, isPrefix, readErr := r.ReadLine()
		if !oversized {
			if len(line)+len(part) > maxChunkLine {
				oversized = true
				line = nil
			} else {
				line = append(line, part...)
			}
		}
		if readErr != nil {
			return line, oversized, readErr
		}
		if !isPrefix {
			return line, oversized, nil
		}
	}
}

// Accumulate folds fragments into one text, calling onUpdate with the text so
// far after every fragment. On a stream error the partial text is returned
// together with the error.
func Accumulate(fragments <-chan Fragment, onUpdate func(text string)) (string, error) {
	var buf strings.Builder
	for f := range fragments {
		if f.Err != nil {
			return buf.String(), f.Err
		}
		buf.WriteString(f.Text)
		if onUpdate != nil {
			onUpdate(buf.String())
		}
	}
	return buf.String(), nil
}

// IsCanceled reports whether err comes from the caller going away.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
