package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Extract text and entities from documents",
	Long: `Process runs each file through OCR, language detection, translation and
entity extraction, stores the batch and writes it in the chosen format.
Accepted files are PDF, PNG and JPEG.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, func(p *services.DocumentPipeline) batchFunc { return p.ProcessBatch })
	},
}

var extractTextCmd = &cobra.Command{
	Use:   "extract-text [files...]",
	Short: "Extract text from documents without entity extraction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, func(p *services.DocumentPipeline) batchFunc { return p.ExtractTextBatch })
	},
}

type batchFunc func(context.Context, []services.Upload) (*models.BatchResult, error)

func init() {
	for _, c := range []*cobra.Command{processCmd, extractTextCmd} {
		c.Flags().String("format", "json", "output format: json, txt or xlsx")
		c.Flags().StringP("out", "o", "", "output file (default: stdout)")
		rootCmd.AddCommand(c)
	}
}

func runBatch(cmd *cobra.Command, files []string, pick func(*services.DocumentPipeline) batchFunc) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	if format == "xlsx" && out == "" {
		return fmt.Errorf("--format xlsx needs --out")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	uploads, err := readUploads(files)
	if err != nil {
		return err
	}
	if err := services.ValidateUploads(uploads, a.Cfg.MaxFileSizeBytes(), a.Cfg.MaxTotalSizeBytes()); err != nil {
		return err
	}

	batch, err := pick(a.Pipeline)(cmd.Context(), uploads)
	if err != nil {
		return err
	}
	stored, err := a.Store.Get(cmd.Context(), batch.BatchKey)
	if err != nil {
		return fmt.Errorf("read back batch %s: %w", batch.BatchKey, err)
	}
	fmt.Fprintf(os.Stderr, "Stored batch %s with %d record(s)\n", batch.BatchKey, len(batch.Results))

	body, err := render(stored, format)
	if err != nil {
		return err
	}
	return write(cmd.OutOrStdout(), out, body)
}

func readUploads(files []string) ([]services.Upload, error) {
	uploads := make([]services.Upload, 0, len(files))
	for _, name := range files {
		ct, ok := services.ContentTypeFor(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, models.ErrUnsupportedInput)
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, services.Upload{Filename: filepath.Base(name), ContentType: ct, Data: data})
	}
	return uploads, nil
}

func render(res *models.StoredResult, format string) ([]byte, error) {
	switch format {
	case "json":
		return services.ExportJSON(res)
	case "txt":
		return []byte(services.ExportText(res)), nil
	case "xlsx":
		return services.ExportXLSX(res)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func write(stdout io.Writer, out string, body []byte) error {
	if out == "" {
		_, err := stdout.Write(body)
		return err
	}
	return os.WriteFile(out, body, 0o644)
}
