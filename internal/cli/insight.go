package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/services"
)

func newInsightCmd(v *viper.Viper) *cobra.Command {
	var job models.JobContext

	cmd := &cobra.Command{
		Use:   "insight <file>",
		Short: "Stream a local-model insight for a resume against a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := getConfig(v)
			if err != nil {
				return err
			}

			log, err := newLogger(config)
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			if err := askMissing(&job); err != nil {
				return err
			}

			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			resume, err := services.NewExtractorService().Extract(upload)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			streamer := services.NewOllamaStreamer(config.Ollama.URL, config.Ollama.Model, config.Timeout, log)
			prompt := services.NewPromptBuilder().BuildInsightPrompt(job, services.TruncateRunes(resume, config.InsightResumeLimit))

			log.Debug("requesting insight",
				zap.String("model", config.Ollama.Model),
				zap.String("job_title", job.Title),
			)

			fragments, err := streamer.Stream(ctx, prompt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			written := 0
			text, err := services.Accumulate(fragments, func(text string) {
				fmt.Fprint(out, text[written:])
				written = len(text)
			})
			fmt.Fprintln(out)

			if err != nil && !services.IsCanceled(err) {
				return err
			}

			log.Debug("insight finished", zap.Int("length", len(text)))
			return nil
		},
	}

	cmd.Flags().StringVar(&job.Title, "job-title", "", "job title to evaluate against")
	cmd.Flags().StringVar(&job.Description, "job-description", "", "job description")
	cmd.Flags().StringVar(&job.Requirements, "requirements", "", "job requirements")

	return cmd
}

// askMissing prompts for the job title and description when they were not
// given as flags.
func askMissing(job *models.JobContext) error {
	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("value is required")
		}
		return nil
	}

	if job.Title == "" {
		p := promptui.Prompt{Label: "Job title", Validate: required}
		title, err := p.Run()
		if err != nil {
			return fmt.Errorf("job title: %w", err)
		}
		job.Title = title
	}

	if job.Description == "" {
		p := promptui.Prompt{Label: "Job description", Validate: required}
		description, err := p.Run()
		if err != nil {
			return fmt.Errorf("job description: %w", err)
		}
		job.Description = description
	}

	return nil
}
