package database

import (
	"encoding/json"
	"fmt"
	"time"
)

// Variant is one resized/encoded rendition of a source image.
type Variant struct {
	URL       string `json:"url"`
	R2Key     string `json:"r2_key"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes *int64 `json:"sizeBytes,omitempty"`
}

// VariantsKind discriminates the two on-disk shapes of the variants document.
type VariantsKind string

const (
	// VariantsKindNested is the current shape: {"variants": {...}, "placeholder": "..."}
	VariantsKindNested VariantsKind = "nested"
	// VariantsKindFlat is the legacy shape: a single variant object at the top level
	VariantsKindFlat VariantsKind = "flat"
)

// VariantsDocument is the parsed form of a media row's variants_json column.
// The shape is sniffed exactly once, at read time; callers switch on Kind
// instead of re-inspecting raw JSON.
type VariantsDocument struct {
	Kind        VariantsKind       `json:"kind"`
	Variants    map[string]Variant `json:"variants,omitempty"`
	Variant     *Variant           `json:"variant,omitempty"`
	Placeholder string             `json:"placeholder,omitempty"`
}

// nestedVariantsJSON is the serialized nested shape.
type nestedVariantsJSON struct {
	Variants    map[string]Variant `json:"variants"`
	Placeholder string             `json:"placeholder,omitempty"`
}

// ParseVariantsDocument decodes a variants_json column value, accepting both
// the nested shape and the legacy flat single-variant shape.
func ParseVariantsDocument(raw string) (*VariantsDocument, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty variants document")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("malformed variants document: %w", err)
	}

	if _, ok := probe["variants"]; ok {
		var nested nestedVariantsJSON
		if err := json.Unmarshal([]byte(raw), &nested); err != nil {
			return nil, fmt.Errorf("malformed nested variants document: %w", err)
		}
		return &VariantsDocument{
			Kind:        VariantsKindNested,
			Variants:    nested.Variants,
			Placeholder: nested.Placeholder,
		}, nil
	}

	// Legacy rows stored a single variant object at the top level
	var flat Variant
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, fmt.Errorf("malformed flat variants document: %w", err)
	}
	if flat.R2Key == "" && flat.URL == "" {
		return nil, fmt.Errorf("variants document matches neither known shape")
	}
	return &VariantsDocument{
		Kind:    VariantsKindFlat,
		Variant: &flat,
	}, nil
}

// ObjectKeys returns every object-store key referenced by the document.
func (d *VariantsDocument) ObjectKeys() []string {
	var keys []string
	switch d.Kind {
	case VariantsKindNested:
		for _, v := range d.Variants {
			if v.R2Key != "" {
				keys = append(keys, v.R2Key)
			}
		}
	case VariantsKindFlat:
		if d.Variant != nil && d.Variant.R2Key != "" {
			keys = append(keys, d.Variant.R2Key)
		}
	}
	return keys
}

// Encode serializes the document back to its nested column form.
func (d *VariantsDocument) Encode() (string, error) {
	variants := d.Variants
	if d.Kind == VariantsKindFlat && d.Variant != nil {
		variants = map[string]Variant{"original": *d.Variant}
	}
	raw, err := json.Marshal(nestedVariantsJSON{
		Variants:    variants,
		Placeholder: d.Placeholder,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FocalPoint is a percentage-based coordinate marking the visually
// important region of an image.
type FocalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CenterFocalPoint is the default when no focal point was submitted.
func CenterFocalPoint() FocalPoint {
	return FocalPoint{X: 50, Y: 50}
}

// MediaRecord represents one logical image asset with all its variants.
type MediaRecord struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	AltText     string            `json:"altText"`
	Caption     string            `json:"caption,omitempty"`
	Credit      string            `json:"credit,omitempty"`
	MimeType    string            `json:"mimeType,omitempty"`
	AspectRatio string            `json:"aspectRatio,omitempty"`
	Variants    *VariantsDocument `json:"variants"`
	FocalPoint  FocalPoint        `json:"focalPoint"`
	URL         string            `json:"url,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PrimaryURL returns the URL display code should prefer: the lg variant when
// present, otherwise any variant.
func (m *MediaRecord) PrimaryURL() string {
	if m.Variants == nil {
		return ""
	}
	switch m.Variants.Kind {
	case VariantsKindNested:
		if v, ok := m.Variants.Variants["lg"]; ok {
			return v.URL
		}
		for _, v := range m.Variants.Variants {
			return v.URL
		}
	case VariantsKindFlat:
		if m.Variants.Variant != nil {
			return m.Variants.Variant.URL
		}
	}
	return ""
}

// Article is a blog post.
type Article struct {
	ID         int64     `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Body       string    `json:"body,omitempty"`
	MediaID    *int64    `json:"mediaId,omitempty"`
	CategoryID *int64    `json:"categoryId,omitempty"`
	Published  bool      `json:"published"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Recipe is a structured recipe document.
type Recipe struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Ingredients json.RawMessage `json:"ingredients,omitempty"`
	Steps       json.RawMessage `json:"steps,omitempty"`
	PrepMinutes int             `json:"prepMinutes,omitempty"`
	CookMinutes int             `json:"cookMinutes,omitempty"`
	Servings    int             `json:"servings,omitempty"`
	MediaID     *int64          `json:"mediaId,omitempty"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	Published   bool            `json:"published"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Category groups articles and recipes.
type Category struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Tag is a free-form label attached to articles.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}
