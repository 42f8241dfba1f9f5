package media

import (
	"encoding/base64"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

// PlaceholderWidth is the pixel width of the low quality image placeholder.
// At this size the blurred preview stays well under a kilobyte.
const PlaceholderWidth = 24

// PlaceholderQuality is deliberately low; the blur hides the artifacts.
const PlaceholderQuality = 20

const placeholderBlurSigma = 1.5

// Placeholder renders a tiny blurred WebP preview of src and returns it as a
// base64 data URI suitable for inlining into markup while the real variants
// load.
func Placeholder(src []byte) (string, error) {
	ref, err := vips.LoadImageFromBuffer(src, nil)
	if err != nil {
		return "", fmt.Errorf("failed to load image for placeholder: %w", err)
	}
	defer ref.Close()

	ratio := float64(PlaceholderWidth) / float64(ref.Width())
	if ratio < 1 {
		if err := ref.Resize(ratio, vips.KernelLanczos3); err != nil {
			return "", fmt.Errorf("failed to shrink placeholder: %w", err)
		}
	}

	if err := ref.GaussianBlur(placeholderBlurSigma); err != nil {
		return "", fmt.Errorf("failed to blur placeholder: %w", err)
	}

	params := vips.NewWebpExportParams()
	params.Quality = PlaceholderQuality
	params.StripMetadata = true

	blob, _, err := ref.ExportWebp(params)
	if err != nil {
		return "", fmt.Errorf("failed to export placeholder: %w", err)
	}

	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(blob), nil
}
