// Package extract drives documents through the extraction pipeline and
// persists the resulting recipe records.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/observability"
	"github.com/spherical/recipe-extractor/internal/pipeline"
)

// Service processes one document at a time: rasterize, run the pipeline,
// persist the record.
type Service struct {
	rasterizer domain.Rasterizer
	pipe       *pipeline.Pipeline
	log        *observability.Logger
	now        func() time.Time
}

// NewService creates a document processor.
func NewService(rasterizer domain.Rasterizer, pipe *pipeline.Pipeline, log *observability.Logger) *Service {
	return &Service{
		rasterizer: rasterizer,
		pipe:       pipe,
		log:        log,
		now:        time.Now,
	}
}

// Process runs one document end to end and returns the persisted record.
// A nil record with a nil error means the pipeline was halted by the
// maximum-stage configuration and no record was produced.
//
// On a hard failure the rasterized artifacts created for this document are
// removed by their conversion-time paths with missing-ok semantics. Files
// a completed rename stage moved away no longer exist at those paths and
// survive: the document is left renamed without a record, which a re-run
// will not pick up again. An operator must reconcile it.
func (s *Service) Process(ctx context.Context, pdfPath string) (*domain.RecipeRecord, error) {
	log := s.log.WithDocument(pdfPath)
	log.Info().Msg("processing document")

	pages, err := s.rasterizer.Rasterize(ctx, pdfPath)
	if err != nil {
		s.cleanup(pages)
		return nil, err
	}
	log.Info().Int("pages", len(pages)).Msg("document rasterized")

	completed, st, err := s.pipe.Run(ctx, pipeline.NewState(pdfPath, pages))
	if err != nil {
		s.cleanup(pages)
		return nil, err
	}
	if !completed {
		return nil, nil
	}

	recordPath, err := s.writeRecord(st)
	if err != nil {
		s.cleanup(pages)
		return nil, err
	}

	log.Info().
		Str("recipe", st.Record.Name).
		Str("record", recordPath).
		Msg("document processed")
	return st.Record, nil
}

// cleanup removes rasterized page artifacts after a hard failure.
func (s *Service) cleanup(pages []domain.PageImage) {
	for _, page := range pages {
		if err := os.Remove(page.ImagePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("image", page.ImagePath).Msg("failed to remove rasterized image")
		}
	}
}

// writeRecord serializes the record into the versioned export envelope,
// named after the final slug (or the original stem when no rename
// happened), next to the source document.
func (s *Service) writeRecord(st pipeline.State) (string, error) {
	export := domain.NewExport(*st.Record, s.now())

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", domain.IOError("marshal recipe record", err)
	}
	data = append(data, '\n')

	path := filepath.Join(filepath.Dir(st.Document), st.BaseName()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", domain.IOError(fmt.Sprintf("write recipe record %s", path), err)
	}
	return path, nil
}
