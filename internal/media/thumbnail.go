package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ThumbnailQuality is the fixed WebP quality for preview thumbnails.
const ThumbnailQuality = 70

// ResizeInput is one resize request: an encoded source image and a width cap.
type ResizeInput struct {
	// Data is the encoded source file (JPEG, PNG, WebP, ...).
	Data []byte
	// MaxWidth caps the output width; smaller sources are never upscaled.
	MaxWidth int
	// Quality is the WebP output quality, 1-100.
	Quality int
}

// ResizeOutput is a resized WebP rendition with its final dimensions.
type ResizeOutput struct {
	Blob   []byte
	Width  int
	Height int
}

// Resize decodes the source, scales it down to at most MaxWidth wide
// preserving aspect ratio, and encodes the result as WebP.
//
// The scale ratio is clamped to 1 so images already narrower than MaxWidth
// come back at their native size. The decoder reference is released before
// returning, so long-lived callers do not accumulate decoder memory.
func Resize(in ResizeInput) (*ResizeOutput, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}
	if in.MaxWidth <= 0 {
		return nil, fmt.Errorf("invalid max width %d", in.MaxWidth)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("empty source image")
	}

	quality := in.Quality
	if quality <= 0 || quality > 100 {
		quality = ThumbnailQuality
	}

	ref, err := vips.LoadImageFromBuffer(in.Data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	defer ref.Close()

	origWidth := ref.Width()
	origHeight := ref.Height()

	ratio := float64(in.MaxWidth) / float64(origWidth)
	if ratio > 1 {
		// Never upscale
		ratio = 1
	}

	width := int(float64(origWidth) * ratio)
	height := int(float64(origHeight) * ratio)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	if ratio < 1 {
		if err := ref.Resize(ratio, vips.KernelLanczos3); err != nil {
			return nil, fmt.Errorf("resize failed: %w", err)
		}
		// vips rounds independently; trust its dimensions
		width = ref.Width()
		height = ref.Height()
	}

	blob, err := exportWebp(ref, quality)
	if err != nil {
		return nil, fmt.Errorf("webp encode failed: %w", err)
	}

	logging.Debug("Resized %dx%d -> %dx%d (%d bytes)", origWidth, origHeight, width, height, len(blob))
	return &ResizeOutput{Blob: blob, Width: width, Height: height}, nil
}

// Thumbnail produces a preview rendition at the fixed thumbnail quality.
func Thumbnail(data []byte, maxWidth int) (*ResizeOutput, error) {
	return Resize(ResizeInput{Data: data, MaxWidth: maxWidth, Quality: ThumbnailQuality})
}

// DecodeRGBA decodes an encoded image into raw RGBA pixels for the encoder.
// Orientation metadata is applied during decode.
func DecodeRGBA(data []byte) ([]byte, int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	return nrgba.Pix, bounds.Dx(), bounds.Dy(), nil
}

// SourceDimensions reads the pixel dimensions of an encoded image without a
// full decode.
func SourceDimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
