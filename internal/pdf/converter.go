// Package pdf converts source documents into page images.
package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/spherical/recipe-extractor/internal/domain"
)

// JPEG quality for rasterized pages and derived crops.
const jpegQuality = 85

// Converter rasterizes PDFs with MuPDF. Page images are written next to the
// source document: {stem}.jpg for a single page, {stem}_page{n}.jpg
// (1-indexed) for multi-page documents.
type Converter struct{}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Rasterize converts every page of the PDF to a JPEG artifact and returns
// the artifacts in page order. A partial failure removes nothing; the
// caller owns cleanup of the returned paths.
func (c *Converter) Rasterize(ctx context.Context, pdfPath string) ([]domain.PageImage, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.ConversionError(fmt.Sprintf("open PDF %s", pdfPath), err)
	}
	defer doc.Close()

	dir := filepath.Dir(pdfPath)
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	total := doc.NumPage()

	pages := make([]domain.PageImage, 0, total)
	for n := 0; n < total; n++ {
		if err := ctx.Err(); err != nil {
			return pages, domain.ConversionError("rasterization cancelled", err)
		}

		img, err := doc.Image(n)
		if err != nil {
			return pages, domain.ConversionError(fmt.Sprintf("render page %d of %s", n+1, pdfPath), err)
		}

		var name string
		if total == 1 {
			name = stem + ".jpg"
		} else {
			name = fmt.Sprintf("%s_page%d.jpg", stem, n+1)
		}
		path := filepath.Join(dir, name)

		if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
			return pages, domain.IOError(fmt.Sprintf("write page image %s", path), err)
		}

		pages = append(pages, domain.PageImage{PageNumber: n + 1, ImagePath: path})
	}

	return pages, nil
}
