package media

// Format names an output encoding for the encoder.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// VariantName identifies one rendition of a source image.
type VariantName string

const (
	VariantOriginal VariantName = "original"
	VariantLg       VariantName = "lg"
	VariantMd       VariantName = "md"
	VariantSm       VariantName = "sm"
	VariantXs       VariantName = "xs"
)

// RequiredVariants are the renditions every complete media record must
// carry. Original is optional.
var RequiredVariants = []VariantName{VariantLg, VariantMd, VariantSm, VariantXs}

// variantMaxWidths maps each sized variant to its maximum pixel width.
var variantMaxWidths = map[VariantName]int{
	VariantLg: 2048,
	VariantMd: 1024,
	VariantSm: 640,
	VariantXs: 320,
}

// MaxWidth returns the target width for a sized variant, or 0 for original
// (meaning keep the source dimensions).
func (v VariantName) MaxWidth() int {
	return variantMaxWidths[v]
}

// IsKnown reports whether the name is one of the recognized variants.
func (v VariantName) IsKnown() bool {
	if v == VariantOriginal {
		return true
	}
	_, ok := variantMaxWidths[v]
	return ok
}

// MimeType returns the content type for an output format.
func (f Format) MimeType() string {
	switch f {
	case FormatAVIF:
		return "image/avif"
	default:
		return "image/webp"
	}
}

// Ext returns the file extension for an output format, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatAVIF:
		return "avif"
	default:
		return "webp"
	}
}

// ParseFormat normalizes a requested format, defaulting to WebP.
func ParseFormat(s string) Format {
	if s == string(FormatAVIF) {
		return FormatAVIF
	}
	return FormatWebP
}
