package codec

import (
	"image"

	"github.com/disintegration/imaging"

	"desyn-backend/internal/models"
)

const DefaultThumbnailSize = 160

// Composite flattens the visible layers bottom-up onto a width x height surface.
// Layers that fail to decode are left out.
func Composite(layers []models.Layer, width, height int) (*image.NRGBA, error) {
	out := Blank(width, height)
	var firstErr error
	for _, layer := range layers {
		if !layer.Visible || layer.Data == "" {
			continue
		}
		surface, err := decode(layer.Data, width, height, false)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = imaging.Overlay(out, surface, image.Pt(0, 0), 1.0)
	}
	return out, firstErr
}

// Thumbnail fits surface into a maxSize square box and encodes it.
func Thumbnail(surface image.Image, maxSize int) (string, []byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}
	small := surface
	b := surface.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		small = imaging.Fit(surface, maxSize, maxSize, imaging.Lanczos)
	}
	encoded, err := Encode(small)
	if err != nil {
		return "", nil, err
	}
	raw, err := rawPNG(encoded)
	if err != nil {
		return "", nil, err
	}
	return encoded, raw, nil
}
