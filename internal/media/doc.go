// Package media implements the image variant pipeline using libvips.
//
// It supports:
//   - AVIF encoding with automatic WebP fallback at the same quality
//   - Thumbnail resizing with Lanczos3 downscaling (never upscales)
//   - Low quality image placeholders as inline WebP data URIs
//   - A worker pool with correlated request/response delivery
//
// Encoding is performed through govips and requires libvips to be
// installed. Call InitVips once at startup before submitting work.
package media
