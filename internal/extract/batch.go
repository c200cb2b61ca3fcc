package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/observability"
)

// Summary accumulates batch results for the final report.
type Summary struct {
	Succeeded int
	Failed    int
	Halted    int // pipelines stopped by the maximum-stage configuration
}

// Total returns the number of documents the batch attempted.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Halted
}

// Batch enumerates eligible documents in a directory and processes each
// independently and sequentially. One document's failure does not block
// subsequent documents.
type Batch struct {
	Service *Service
	Log     *observability.Logger

	// OnDocument, when set, is called before each document is processed.
	// Used by the CLI for progress reporting.
	OnDocument func(index, total int, path string)
}

// Run processes every unprocessed PDF in dir. Only discovery errors abort
// the batch; per-document failures are counted and logged.
func (b *Batch) Run(ctx context.Context, dir string) (Summary, error) {
	var summary Summary

	docs, err := FindUnprocessed(dir)
	if err != nil {
		return summary, err
	}
	if len(docs) == 0 {
		b.Log.Info().Str("dir", dir).Msg("no unprocessed documents found")
		return summary, nil
	}

	b.Log.Info().Str("dir", dir).Int("documents", len(docs)).Msg("starting batch")

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if b.OnDocument != nil {
			b.OnDocument(i, len(docs), doc)
		}

		record, err := b.Service.Process(ctx, doc)
		switch {
		case err != nil:
			summary.Failed++
			b.Log.Error().Err(err).Str("document", doc).Msg("document failed")
		case record == nil:
			summary.Halted++
		default:
			summary.Succeeded++
		}
	}

	b.Log.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("halted", summary.Halted).
		Msg("batch complete")
	return summary, nil
}

// FindUnprocessed returns the PDFs in dir that have neither an image
// artifact nor a JSON record for their base name. A document that was
// processed before, or renamed by a partially failed run, is never picked
// up again.
func FindUnprocessed(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("directory does not exist: %s", dir), err)
	}
	if !info.IsDir() {
		return nil, domain.ConfigError(fmt.Sprintf("not a directory: %s", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read directory %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	var docs []string
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if hasSibling(names, stem) {
			continue
		}
		docs = append(docs, filepath.Join(dir, name))
	}
	sort.Strings(docs)
	return docs, nil
}

// hasSibling reports whether any {stem}*.jpg artifact or {stem}.json
// record exists among the directory entries.
func hasSibling(names []string, stem string) bool {
	for _, name := range names {
		if name == stem+".json" {
			return true
		}
		if strings.HasPrefix(name, stem) && strings.HasSuffix(name, ".jpg") {
			return true
		}
	}
	return false
}
