package blob

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// Image uploads arrive as data URLs and are recompressed before storage so a
// single phone photo stays well below the document size ceiling.
const (
	// MaxImageWidth is the width images are scaled down to when wider.
	MaxImageWidth = 1024

	// ImageQuality is the JPEG quality used when re-encoding.
	ImageQuality = 70
)

// DecodeDataURL splits a data URL ("data:image/png;base64,...") into its
// payload and media type.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", fmt.Errorf("blob.DecodeDataURL: missing data: prefix: %w", domain.ErrValidation)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("blob.DecodeDataURL: missing payload: %w", domain.ErrValidation)
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("blob.DecodeDataURL: only base64 data urls are supported: %w", domain.ErrValidation)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("blob.DecodeDataURL: %w: %w", err, domain.ErrValidation)
	}
	return data, mediaType, nil
}

// CompressImage decodes an image (JPEG, PNG, or GIF), scales it down to
// MaxImageWidth if wider, and re-encodes it as JPEG. Images at or below the
// limit keep their dimensions but are still converted to JPEG.
func CompressImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("blob.CompressImage: decode: %w: %w", err, domain.ErrValidation)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > MaxImageWidth {
		scaled := width
		height = height * MaxImageWidth / scaled
		if height < 1 {
			// Extreme aspect ratios round down to zero, which the JPEG
			// encoder rejects.
			height = 1
		}
		width = MaxImageWidth

		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: ImageQuality}); err != nil {
		return nil, fmt.Errorf("blob.CompressImage: encode: %w", err)
	}
	return buf.Bytes(), nil
}
