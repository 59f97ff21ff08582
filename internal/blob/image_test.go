package blob_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
)

func pngDataURL(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeDataURL(t *testing.T) {
	t.Parallel()

	data, mediaType, err := blob.DecodeDataURL("data:text/plain;base64,aGFsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hallo", string(data))
	assert.Equal(t, "text/plain", mediaType)
}

func TestDecodeDataURL_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not a data url":  "https://example.com/photo.jpg",
		"no payload":      "data:image/png;base64",
		"not base64 mode": "data:text/plain,hallo",
		"bad base64":      "data:image/png;base64,!!!",
	}
	for name, input := range cases {
		input := input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := blob.DecodeDataURL(input)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCompressImage_ScalesDownWideImages(t *testing.T) {
	t.Parallel()

	dataURL := pngDataURL(t, 2048, 1024)
	data, _, err := blob.DecodeDataURL(dataURL)
	require.NoError(t, err)

	out, err := blob.CompressImage(data)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, blob.MaxImageWidth, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
}

func TestCompressImage_ClampsExtremeAspectRatio(t *testing.T) {
	t.Parallel()

	// Integer scaling of a 5000x1 banner would round the height to zero.
	data, _, err := blob.DecodeDataURL(pngDataURL(t, 5000, 1))
	require.NoError(t, err)

	out, err := blob.CompressImage(data)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, blob.MaxImageWidth, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
}

func TestCompressImage_KeepsSmallDimensions(t *testing.T) {
	t.Parallel()

	data, _, err := blob.DecodeDataURL(pngDataURL(t, 640, 480))
	require.NoError(t, err)

	out, err := blob.CompressImage(data)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestCompressImage_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := blob.CompressImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
