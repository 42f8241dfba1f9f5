package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/media"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/storage"
)

// bulkDeleteBatchSize bounds concurrent object-store deletions.
const bulkDeleteBatchSize = 5

const maxUploadBytes = 32 << 20

// extForMime maps accepted image mime types to object key extensions.
var extForMime = map[string]string{
	"image/webp": "webp",
	"image/avif": "avif",
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

func extensionFor(mimeType, fallback string) string {
	if ext, ok := extForMime[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return fallback
}

type uploadSlot struct {
	UploadURL string `json:"uploadUrl"`
	R2Key     string `json:"r2Key"`
}

type uploadURLsResponse struct {
	UploadID string                `json:"uploadId"`
	BaseName string                `json:"baseName"`
	Folder   string                `json:"folder"`
	URLs     map[string]uploadSlot `json:"urls"`
}

// GetUploadURLs hands out one presigned PUT URL per requested variant, each
// scoped to a unique object key sharing a fresh upload id.
func (h *Handlers) GetUploadURLs(w http.ResponseWriter, r *http.Request) {
	if !h.store.PresignEnabled() {
		writeError(w, http.StatusInternalServerError, CodeInternal,
			"direct uploads are not configured", nil)
		return
	}

	baseName := storage.SanitizeBaseName(r.URL.Query().Get("baseName"))
	if baseName == "" {
		writeValidationError(w, "baseName is required", nil)
		return
	}

	variantsParam := r.URL.Query().Get("variants")
	if variantsParam == "" {
		writeValidationError(w, "variants is required", nil)
		return
	}
	var variants []media.VariantName
	for _, raw := range strings.Split(variantsParam, ",") {
		name := media.VariantName(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if !name.IsKnown() {
			writeValidationError(w, fmt.Sprintf("unknown variant %q", name), nil)
			return
		}
		variants = append(variants, name)
	}
	if len(variants) == 0 {
		writeValidationError(w, "variants is required", nil)
		return
	}

	ext := extensionFor(r.URL.Query().Get("mimeType"), "webp")
	originalExt := strings.TrimPrefix(r.URL.Query().Get("originalExt"), ".")
	if originalExt == "" {
		originalExt = ext
	}

	uploadID := uuid.NewString()
	urls := make(map[string]uploadSlot, len(variants))

	for _, variant := range variants {
		variantExt := ext
		if variant == media.VariantOriginal {
			variantExt = originalExt
		}
		key := storage.BuildObjectKey(h.props.Media.Folder, baseName, string(variant), uploadID, variantExt)

		url, err := h.store.PresignedPut(r.Context(), key)
		if err != nil {
			logging.Error("Failed to presign %s: %v", key, err)
			writeError(w, http.StatusInternalServerError, CodeInternal,
				"failed to generate upload URL", nil)
			return
		}
		urls[string(variant)] = uploadSlot{UploadURL: url, R2Key: key}
	}

	writeData(w, http.StatusOK, uploadURLsResponse{
		UploadID: uploadID,
		BaseName: baseName,
		Folder:   h.props.Media.Folder,
		URLs:     urls,
	})
}

type uploadVariantResponse struct {
	R2Key  string `json:"r2Key"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UploadVariant accepts one variant's bytes through the server, for callers
// without presigned upload support.
func (h *Handlers) UploadVariant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeValidationError(w, "invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, "file is required", nil)
		return
	}
	defer file.Close()

	variantName := media.VariantName(r.FormValue("variantName"))
	if variantName == "" || !variantName.IsKnown() {
		writeValidationError(w, fmt.Sprintf("unknown variant %q", variantName), nil)
		return
	}

	baseName := storage.SanitizeBaseName(r.FormValue("baseName"))
	if baseName == "" {
		writeValidationError(w, "baseName is required", nil)
		return
	}

	uploadID := r.FormValue("uploadId")
	if uploadID == "" {
		writeValidationError(w, "uploadId is required", nil)
		return
	}

	width, _ := strconv.Atoi(r.FormValue("width"))
	height, _ := strconv.Atoi(r.FormValue("height"))

	contentType := header.Header.Get("Content-Type")
	ext := extensionFor(contentType, strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if ext == "" {
		ext = "webp"
	}

	key := storage.BuildObjectKey(h.props.Media.Folder, baseName, string(variantName), uploadID, ext)

	if err := h.store.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		logging.Error("Failed to upload %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "upload failed", nil)
		return
	}

	writeData(w, http.StatusOK, uploadVariantResponse{
		R2Key:  key,
		URL:    h.store.PublicURL(key),
		Width:  width,
		Height: height,
	})
}

type confirmVariant struct {
	R2Key     string `json:"r2Key"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes *int64 `json:"sizeBytes,omitempty"`
}

type confirmRequest struct {
	Name        string                    `json:"name"`
	AltText     string                    `json:"altText"`
	Caption     string                    `json:"caption"`
	Credit      string                    `json:"credit"`
	AspectRatio string                    `json:"aspectRatio"`
	MimeType    string                    `json:"mimeType"`
	Placeholder string                    `json:"placeholder"`
	FocalPoint  *database.FocalPoint      `json:"focalPoint"`
	Variants    map[string]confirmVariant `json:"variants"`
}

// ConfirmMedia materializes one media record once every required variant has
// been uploaded.
func (h *Handlers) ConfirmMedia(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeValidationError(w, "name is required", nil)
		return
	}
	if strings.TrimSpace(req.AltText) == "" {
		writeValidationError(w, "altText is required", nil)
		return
	}
	if len(req.Variants) == 0 {
		writeValidationError(w, "variants is required", nil)
		return
	}

	for _, required := range media.RequiredVariants {
		v, ok := req.Variants[string(required)]
		if !ok || v.R2Key == "" {
			writeValidationError(w,
				fmt.Sprintf("missing required variant %q", required),
				map[string]string{"missingVariant": string(required)})
			return
		}
	}

	variants := make(map[string]database.Variant, len(req.Variants))
	for name, v := range req.Variants {
		variants[name] = database.Variant{
			URL:       h.store.PublicURL(v.R2Key),
			R2Key:     v.R2Key,
			Width:     v.Width,
			Height:    v.Height,
			SizeBytes: v.SizeBytes,
		}
	}

	focal := database.CenterFocalPoint()
	if req.FocalPoint != nil {
		focal = *req.FocalPoint
	}

	record, err := h.db.InsertMedia(r.Context(), database.InsertMediaParams{
		Name:        req.Name,
		AltText:     req.AltText,
		Caption:     req.Caption,
		Credit:      req.Credit,
		MimeType:    req.MimeType,
		AspectRatio: req.AspectRatio,
		Variants: &database.VariantsDocument{
			Kind:        database.VariantsKindNested,
			Variants:    variants,
			Placeholder: req.Placeholder,
		},
		FocalPoint: focal,
	})
	if err != nil {
		logging.Error("Failed to insert media %q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to save media", nil)
		return
	}
	if record == nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "media insert returned no record", nil)
		return
	}

	writeData(w, http.StatusCreated, record)
}

// ListMedia returns media records with filtering, search and pagination.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	records, err := h.db.GetMedia(r.Context(), database.MediaListOptions{
		Filter: q.Get("type"),
		Search: q.Get("search"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logging.Error("Failed to list media: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to list media", nil)
		return
	}

	writeData(w, http.StatusOK, records)
}

// GetMediaByID returns a single media record.
func (h *Handlers) GetMediaByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeValidationError(w, "invalid media id", nil)
		return
	}

	record, err := h.db.GetMediaByID(r.Context(), id)
	if err != nil {
		logging.Error("Failed to fetch media %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to fetch media", nil)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "media not found", nil)
		return
	}

	writeData(w, http.StatusOK, record)
}

type updateMediaRequest struct {
	Name        *string              `json:"name"`
	AltText     *string              `json:"altText"`
	Caption     *string              `json:"caption"`
	Credit      *string              `json:"credit"`
	AspectRatio *string              `json:"aspectRatio"`
	FocalPoint  *database.FocalPoint `json:"focalPoint"`
}

// UpdateMedia patches metadata fields on an existing record. Fields absent
// from the body are left untouched.
func (h *Handlers) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeValidationError(w, "invalid media id", nil)
		return
	}

	var req updateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}
	if req.Name == nil && req.AltText == nil && req.Caption == nil &&
		req.Credit == nil && req.AspectRatio == nil && req.FocalPoint == nil {
		writeValidationError(w, "no updatable fields in body", nil)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeValidationError(w, "name cannot be empty", nil)
		return
	}
	if req.AltText != nil && strings.TrimSpace(*req.AltText) == "" {
		writeValidationError(w, "altText cannot be empty", nil)
		return
	}

	record, err := h.db.UpdateMedia(r.Context(), id, database.UpdateMediaParams{
		Name:        req.Name,
		AltText:     req.AltText,
		Caption:     req.Caption,
		Credit:      req.Credit,
		AspectRatio: req.AspectRatio,
		FocalPoint:  req.FocalPoint,
	})
	if err != nil {
		logging.Error("Failed to update media %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to update media", nil)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "media not found", nil)
		return
	}

	writeData(w, http.StatusOK, record)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDeleteStats reports the outcome of a bulk delete, including per-item
// failures. Partial failure is a reported outcome, not an error status.
type BulkDeleteStats struct {
	Processed int      `json:"processed"`
	Deleted   int      `json:"deleted"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// BulkDeleteMedia removes media rows and their backing objects. IDs are
// processed in batches of five with intra-batch parallelism; object-store
// failures are logged and recorded but never abort the batch.
func (h *Handlers) BulkDeleteMedia(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}
	if len(req.IDs) == 0 {
		writeValidationError(w, "ids is required", nil)
		return
	}

	stats := BulkDeleteStats{Errors: []string{}}
	var mu sync.Mutex

	for start := 0; start < len(req.IDs); start += bulkDeleteBatchSize {
		end := start + bulkDeleteBatchSize
		if end > len(req.IDs) {
			end = len(req.IDs)
		}

		var wg sync.WaitGroup
		for _, id := range req.IDs[start:end] {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				err := h.deleteOneMedia(r, id)

				mu.Lock()
				defer mu.Unlock()
				stats.Processed++
				if err != nil {
					stats.Failed++
					stats.Errors = append(stats.Errors, err.Error())
					metrics.MediaDeleteFailures.Inc()
				} else {
					stats.Deleted++
					metrics.MediaDeletedTotal.Inc()
				}
			}(id)
		}
		wg.Wait()
	}

	writeData(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// deleteOneMedia removes one record's object-store keys best-effort, then
// hard-deletes the row.
func (h *Handlers) deleteOneMedia(r *http.Request, id int64) error {
	record, err := h.db.GetMediaByID(r.Context(), id)
	if err != nil {
		return fmt.Errorf("media %d: %w", id, err)
	}
	if record == nil {
		return fmt.Errorf("media %d not found", id)
	}

	if record.Variants != nil {
		for _, key := range record.Variants.ObjectKeys() {
			if err := h.store.Remove(r.Context(), key); err != nil {
				logging.Warn("Failed to remove object %s for media %d: %v", key, id, err)
			}
		}
	}

	if err := h.db.DeleteMedia(r.Context(), id); err != nil {
		return fmt.Errorf("media %d: %w", id, err)
	}
	return nil
}
