package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/services"
)

func newStructureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "structure <file>",
		Short: "Extract a resume file and print its structured sections as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := readUpload(args[0])
			if err != nil {
				return err
			}

			text, err := services.NewExtractorService().Extract(upload)
			if err != nil {
				return err
			}

			structured := services.NewStructurer(zap.NewNop()).Structure(text)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(structured)
		},
	}
}

func readUpload(path string) (services.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Upload{}, fmt.Errorf("reading resume: %w", err)
	}
	return services.Upload{
		Filename:  filepath.Base(path),
		MediaType: mime.TypeByExtension(filepath.Ext(path)),
		Data:      data,
	}, nil
}
