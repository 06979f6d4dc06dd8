// Package codec converts frame rasters to and from the data URLs stored on
// frame documents.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

const pngPrefix = "data:image/png;base64,"

// MaxDimension bounds either side of any decoded image.
const MaxDimension = 4096

var supportedMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// DecodeError reports a corrupt or unsupported frame encoding.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return "decode frame: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// Encode serializes surface as a PNG data URL. The output is a pure function of
// the pixels, so an unchanged surface always encodes to the same string.
func Encode(surface image.Image) (string, error) {
	if surface == nil || surface.Bounds().Empty() {
		return "", errors.New("encode frame: empty surface")
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, surface); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return pngPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Blank returns a fully transparent surface.
func Blank(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

// Decode paints an encoded frame onto a new surface. An empty encoding yields a
// blank surface of width x height. Images larger than width x height are
// rejected from their header before any pixels are decoded; a zero side
// leaves only MaxDimension in force.
func Decode(encoded string, width, height int) (*image.NRGBA, error) {
	return decode(encoded, width, height, true)
}

// DecodeOrBlank is Decode with the blank-frame substitution applied on decode
// failure. Stored images larger than the canvas are still drawn, cropped.
func DecodeOrBlank(encoded string, width, height int) (*image.NRGBA, error) {
	surface, err := decode(encoded, width, height, false)
	if err != nil {
		return Blank(width, height), err
	}
	return surface, nil
}

// Check validates a stored encoding without holding it to the canvas size.
func Check(encoded string) error {
	_, err := decode(encoded, 0, 0, false)
	return err
}

func decode(encoded string, width, height int, fit bool) (*image.NRGBA, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Blank(width, height), nil
	}

	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, &DecodeError{Reason: "malformed data url"}
		}
		header := encoded[len("data:"):comma]
		parts := strings.Split(header, ";")
		if !supportedMIME[parts[0]] {
			return nil, &DecodeError{Reason: fmt.Sprintf("unsupported media type %q", parts[0])}
		}
		if parts[len(parts)-1] != "base64" {
			return nil, &DecodeError{Reason: "data url is not base64 encoded"}
		}
		payload = encoded[comma+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64", Err: err}
	}
	if len(raw) == 0 {
		return Blank(width, height), nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid image", Err: err}
	}
	maxW, maxH := MaxDimension, MaxDimension
	if fit && width > 0 {
		maxW = min(width, maxW)
	}
	if fit && height > 0 {
		maxH = min(height, maxH)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxW || cfg.Height > maxH {
		return nil, &DecodeError{Reason: fmt.Sprintf("image is %dx%d, limit is %dx%d", cfg.Width, cfg.Height, maxW, maxH)}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid image", Err: err}
	}
	return toNRGBA(img), nil
}

func rawPNG(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, pngPrefix))
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
