package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/llm"
	"github.com/spherical/recipe-extractor/internal/observability"
)

// TitleStage extracts title, description, category and tags from the first
// page image and renames the source document and every page image to the
// derived slug.
//
// An unusable model response is a soft failure: the pipeline continues
// under the original document name with default metadata. A failed rename
// is fatal, because later stages must never operate on stale paths.
type TitleStage struct {
	invoker domain.Invoker
	cfg     domain.StageConfig
	log     *observability.Logger
}

type titlePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (s *TitleStage) Name() string { return "title-extraction" }
func (s *TitleStage) Number() int  { return 1 }

func (s *TitleStage) Run(ctx context.Context, st State) (State, error) {
	content, err := s.invoker.Complete(ctx, s.cfg, titlePrompt, []string{st.Images[0].ImagePath})
	if err != nil {
		return st, err
	}

	var payload titlePayload
	if err := llm.RecoverObject(content).Decode(&payload); err != nil {
		s.log.Warn().Err(err).Msg("no title recoverable, keeping original document name and default metadata")
		return st, nil
	}
	if strings.TrimSpace(payload.Name) == "" {
		s.log.Warn().Msg("model returned an empty title, keeping original document name and default metadata")
		return st, nil
	}

	next := st
	next.Title = strings.TrimSpace(payload.Name)
	next.Description = payload.Description
	next.Category = domain.NormalizeCategory(payload.Category)
	if payload.Tags != nil {
		next.Tags = payload.Tags
	}

	slug := Slugify(next.Title)
	next, err = renameArtifacts(next, slug)
	if err != nil {
		return st, err
	}

	s.log.Info().Str("title", next.Title).Str("slug", slug).Msg("title extracted, artifacts renamed")
	return next, nil
}

// renameArtifacts renames the source document and every page image to the
// slug and returns a state carrying the new paths. Renames commit one file
// at a time; the first failure aborts, leaving the document partially
// renamed but never with a state that points at missing files.
func renameArtifacts(st State, slug string) (State, error) {
	docTarget := filepath.Join(filepath.Dir(st.Document), slug+filepath.Ext(st.Document))
	if err := renameFile(st.Document, docTarget); err != nil {
		return st, err
	}
	st.Document = docTarget

	images := make([]domain.PageImage, len(st.Images))
	for i, img := range st.Images {
		ext := filepath.Ext(img.ImagePath)
		name := slug + ext
		if len(st.Images) > 1 {
			name = fmt.Sprintf("%s_page%d%s", slug, i+1, ext)
		}
		target := filepath.Join(filepath.Dir(img.ImagePath), name)
		if err := renameFile(img.ImagePath, target); err != nil {
			return st, err
		}
		images[i] = domain.PageImage{PageNumber: img.PageNumber, ImagePath: target}
	}
	st.Images = images
	st.Slug = slug
	return st, nil
}

func renameFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err != nil {
		return domain.IOError(fmt.Sprintf("rename %s to %s", src, dst), err)
	}
	return nil
}
