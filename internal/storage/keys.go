package storage

import (
	"fmt"
	"regexp"
	"strings"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeBaseName reduces a user-supplied base name to characters safe for
// object keys. Returns an empty string when nothing survives.
func SanitizeBaseName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = unsafeKeyChars.ReplaceAllString(name, "")
	name = strings.Trim(name, ".-")
	return name
}

// BuildObjectKey derives the object key for one variant:
// {folder}/{baseName}{suffix}-{uploadID}.{ext}, where suffix is empty only
// for the original variant.
func BuildObjectKey(folder, baseName, variantName, uploadID, ext string) string {
	suffix := ""
	if variantName != "original" {
		suffix = "-" + variantName
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/%s%s-%s.%s", folder, baseName, suffix, uploadID, ext)
}
