package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
)

// EncodeInput is one encode request: raw RGBA pixels plus the requested
// output format and quality.
type EncodeInput struct {
	// Buffer holds raw RGBA bytes, 4 per pixel, row-major.
	Buffer []byte
	Width  int
	Height int
	Format Format
	// Quality is 1-100.
	Quality int
}

// EncodeOutput carries the compressed blob and the format actually produced,
// which differs from the requested format when AVIF fell back to WebP.
type EncodeOutput struct {
	Blob         []byte
	OutputFormat Format
	Width        int
	Height       int
}

// Encode converts raw RGBA pixel data into a compressed image blob.
//
// AVIF is attempted first when requested; on any encoder failure the same
// pixels are re-encoded as WebP at the same quality. An explicit WebP
// request always uses the WebP encoder. Encoder failures are returned as
// errors, never panics.
func Encode(in EncodeInput) (*EncodeOutput, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", in.Width, in.Height)
	}
	if expected := in.Width * in.Height * 4; len(in.Buffer) != expected {
		return nil, fmt.Errorf("buffer length %d does not match %dx%d RGBA (want %d)",
			len(in.Buffer), in.Width, in.Height, expected)
	}

	quality := in.Quality
	if quality <= 0 || quality > 100 {
		quality = 75
	}

	ref, err := importRGBA(in.Buffer, in.Width, in.Height)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	if in.Format == FormatAVIF {
		blob, err := exportAvif(ref, quality)
		if err == nil {
			return &EncodeOutput{Blob: blob, OutputFormat: FormatAVIF, Width: in.Width, Height: in.Height}, nil
		}
		// Any AVIF failure downgrades to WebP at the same quality
		logging.Warn("AVIF encode failed, falling back to WebP: %v", err)
		metrics.EncodeFallbacksTotal.Inc()
	}

	blob, err := exportWebp(ref, quality)
	if err != nil {
		return nil, fmt.Errorf("webp encode failed: %w", err)
	}
	return &EncodeOutput{Blob: blob, OutputFormat: FormatWebP, Width: in.Width, Height: in.Height}, nil
}

// importRGBA brings raw RGBA pixels into vips. libvips wants an encoded
// container, so the pixels take a lossless PNG round trip.
func importRGBA(buf []byte, width, height int) (*vips.ImageRef, error) {
	img := &image.NRGBA{
		Pix:    buf,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("failed to stage pixels for encoding: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(pngBuf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load staged pixels: %w", err)
	}
	return ref, nil
}

func exportWebp(ref *vips.ImageRef, quality int) ([]byte, error) {
	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.StripMetadata = true

	blob, _, err := ref.ExportWebp(params)
	return blob, err
}

func exportAvif(ref *vips.ImageRef, quality int) ([]byte, error) {
	params := vips.NewAvifExportParams()
	params.Quality = quality
	params.StripMetadata = true

	blob, _, err := ref.ExportAvif(params)
	return blob, err
}
