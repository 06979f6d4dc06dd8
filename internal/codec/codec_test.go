package codec_test

import (
	"encoding/base64"
	"hash/crc32"
	"image"
	"image/color"
	"strings"
	"testing"

	"desyn-backend/internal/codec"
	"desyn-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: alpha})
		}
	}
	return img
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, alpha := range []uint8{255, 128} {
		surface := pattern(32, 18, alpha)

		encoded, err := codec.Encode(surface)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "data:image/png;base64,"))

		decoded, err := codec.Decode(encoded, 32, 18)
		require.NoError(t, err)
		assert.Equal(t, surface.Bounds(), decoded.Bounds())
		assert.Equal(t, surface.Pix, decoded.Pix, "alpha=%d", alpha)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	surface := pattern(20, 20, 255)

	a, err := codec.Encode(surface)
	require.NoError(t, err)
	b, err := codec.Encode(surface)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDecode_EmptyYieldsBlank(t *testing.T) {
	blank, err := codec.Decode("", 640, 360)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 640, 360), blank.Bounds())
	for _, v := range blank.Pix {
		if v != 0 {
			t.Fatal("blank surface has painted pixels")
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		"data:image/png;base64",
		"data:image/gif;base64,R0lGODlh",
		"data:image/png;base64,!!!not-base64!!!",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png")),
		"data:image/png,plain",
	}
	for _, encoded := range cases {
		_, err := codec.Decode(encoded, 10, 10)
		require.Error(t, err, encoded)
		assert.True(t, codec.IsDecodeError(err), encoded)
	}
}

// pngHeader builds the signature and IHDR chunk of a PNG claiming w x h
// pixels. The image data itself is absent.
func pngHeader(w, h uint32) string {
	ihdr := []byte{
		0, 0, 0, 13, 'I', 'H', 'D', 'R',
		byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w),
		byte(h >> 24), byte(h >> 16), byte(h >> 8), byte(h),
		8, 6, 0, 0, 0,
	}
	crc := crc32.ChecksumIEEE(ihdr[4:])
	raw := append([]byte("\x89PNG\r\n\x1a\n"), ihdr...)
	raw = append(raw, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

func TestDecode_RejectsImagesLargerThanCanvas(t *testing.T) {
	_, err := codec.Decode(pngHeader(6000, 6000), 64, 36)
	require.Error(t, err)
	assert.True(t, codec.IsDecodeError(err))
	assert.Contains(t, err.Error(), "6000x6000")

	_, err = codec.Decode(pngHeader(codec.MaxDimension+1, 10), 0, 0)
	assert.True(t, codec.IsDecodeError(err))

	wide, err := codec.Encode(pattern(65, 36, 255))
	require.NoError(t, err)
	_, err = codec.Decode(wide, 64, 36)
	assert.True(t, codec.IsDecodeError(err))

	fits, err := codec.Encode(pattern(64, 36, 255))
	require.NoError(t, err)
	_, err = codec.Decode(fits, 64, 36)
	assert.NoError(t, err)
}

func TestDecodeOrBlank_DrawsOversizedStoredImage(t *testing.T) {
	wide, err := codec.Encode(pattern(20, 10, 255))
	require.NoError(t, err)

	surface, err := codec.DecodeOrBlank(wide, 8, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), surface.Bounds())
	assert.NoError(t, codec.Check(wide))
}

func TestDecodeOrBlank_SubstitutesBlank(t *testing.T) {
	surface, err := codec.DecodeOrBlank("data:image/png;base64,AAAA", 8, 4)

	assert.True(t, codec.IsDecodeError(err))
	require.NotNil(t, surface)
	assert.Equal(t, image.Rect(0, 0, 8, 4), surface.Bounds())
}

func TestComposite_SkipsHiddenLayers(t *testing.T) {
	red := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i], red.Pix[i+3] = 255, 255
	}
	redData, err := codec.Encode(red)
	require.NoError(t, err)

	out, err := codec.Composite([]models.Layer{
		{ID: "1", Name: "Layer 1", Visible: false, Data: redData},
	}, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.NRGBAAt(1, 1).A)

	out, err = codec.Composite([]models.Layer{
		{ID: "1", Name: "Layer 1", Visible: true, Data: redData},
		{ID: "2", Name: "Broken", Visible: true, Data: "data:image/png;base64,AAAA"},
	}, 4, 4)
	assert.True(t, codec.IsDecodeError(err))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(1, 1))
}

func TestThumbnail_FitsBox(t *testing.T) {
	encoded, raw, err := codec.Thumbnail(pattern(640, 360, 255), 160)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	thumb, err := codec.Decode(encoded, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 160, thumb.Bounds().Dx())
	assert.Equal(t, 90, thumb.Bounds().Dy())
}
