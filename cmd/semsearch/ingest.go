package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/app"
	dombatch "github.com/kailas-cloud/semsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
)

// bulkInserter is the slice of the ingest service the command drives.
type bulkInserter interface {
	BulkInsert(ctx context.Context, items []domdoc.Input) (*dombatch.Outcome, error)
}

func newIngestCmd(g *globals) *cobra.Command {
	var (
		lines     bool
		batchSize int
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <glob>...",
		Short: "Bulk insert documents from files",
		Long: `Read files matching the given patterns and insert them as documents.
Patterns support ** (e.g. 'docs/**/*.txt'). Each file becomes one document
unless --lines is set, in which case every non-blank line is a document.

Examples:
  semsearch ingest notes.txt
  semsearch ingest --lines 'corpus/**/*.txt'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files match %v", args)
			}
			docs, err := readDocuments(files, lines)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}

			size := batchSize
			if size <= 0 || size > a.Ingest.MaxBatch() {
				size = a.Ingest.MaxBatch()
			}

			var progress io.Writer = os.Stderr
			if quiet {
				progress = io.Discard
			}
			sum, err := ingestBatches(cmd.Context(), a.Ingest, docs, size, progress)
			if err != nil {
				return err
			}

			g.logger.Info("Ingest finished",
				zap.Int("files", len(files)),
				zap.Int("documents", len(docs)),
				zap.Int("successful", sum.successful),
				zap.Int("failed", sum.failed),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents: %d stored, %d failed\n",
				len(docs), sum.successful, sum.failed)
			for _, f := range sum.failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  #%d [%s] %s\n", f.Index, f.Stage, f.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lines, "lines", false, "treat every non-blank line as a separate document")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per bulk insert (default: ingest.max_batch_size)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// collectFiles expands the patterns into a sorted, de-duplicated list of regular files.
func collectFiles(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			m = filepath.Clean(m)
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func readDocuments(files []string, lines bool) ([]domdoc.Input, error) {
	var docs []domdoc.Input
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !lines {
			docs = append(docs, domdoc.NewInput(string(data)))
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			docs = append(docs, domdoc.NewInput(line))
		}
	}
	return docs, nil
}

type ingestSummary struct {
	successful int
	failed     int
	failures   []dombatch.Failure // indexes are global across batches
}

func ingestBatches(
	ctx context.Context, svc bulkInserter, docs []domdoc.Input, size int, progress io.Writer,
) (ingestSummary, error) {
	var sum ingestSummary

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(progress)
		}),
	)

	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out, err := svc.BulkInsert(ctx, docs[start:end])
		if err != nil {
			return sum, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}

		sum.successful += out.Successful
		sum.failed += out.Failed
		for _, f := range out.Errors {
			f.Index += start
			sum.failures = append(sum.failures, f)
		}
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()
	return sum, nil
}
