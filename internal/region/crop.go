// Package region crops semantic regions out of page images.
package region

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/spherical/recipe-extractor/internal/domain"
)

const jpegQuality = 85

// Crop extracts the bounding box from the source image and writes it as a
// new JPEG artifact at dstPath. The box is validated before the source is
// opened; an inconsistent box fails the document.
func Crop(srcPath string, box domain.BoundingBox, dstPath string) error {
	if err := box.Validate(); err != nil {
		return err
	}

	src, err := imaging.Open(srcPath)
	if err != nil {
		return domain.IOError(fmt.Sprintf("open image %s", srcPath), err)
	}

	rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom)
	cropped := imaging.Crop(src, rect)
	if cropped.Bounds().Empty() {
		return domain.ValidationError(fmt.Sprintf("bounding box %+v lies outside image %s", box, srcPath), nil)
	}

	if err := imaging.Save(cropped, dstPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return domain.IOError(fmt.Sprintf("write crop %s", dstPath), err)
	}
	return nil
}
