package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/media"
)

// APIError is a decoded error envelope from the content API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://admin.example.com.
	BaseURL string
	// Token is the bearer token presented on every request.
	Token string
	// Format picks the encode target for sized variants; AVIF falls back
	// to WebP per blob when the encoder cannot produce it.
	Format media.Format
	// Quality is the encode quality, 1-100. Zero uses the encoder default.
	Quality int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// Pipeline runs the encode and resize work. Required.
	Pipeline *media.Pipeline
}

// Client drives the multi-variant upload flow against a running API:
// derive the sized variants, obtain presigned PUT URLs, push each blob
// directly to the object store (or through the upload-variant endpoint when
// presigning is unavailable), then confirm the media record.
type Client struct {
	baseURL  string
	token    string
	format   media.Format
	quality  int
	httpc    *http.Client
	pipeline *media.Pipeline
}

func New(opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 5 * time.Minute}
	}
	format := opts.Format
	if format == "" {
		format = media.FormatWebP
	}
	return &Client{
		baseURL:  opts.BaseURL,
		token:    opts.Token,
		format:   format,
		quality:  opts.Quality,
		httpc:    httpc,
		pipeline: opts.Pipeline,
	}
}

// Params describes one source image to upload.
type Params struct {
	BaseName    string
	Name        string
	AltText     string
	Caption     string
	Credit      string
	AspectRatio string
	FocalPoint  *database.FocalPoint
	// IncludeOriginal also uploads the untouched source bytes.
	IncludeOriginal bool
	// SourceMime is the mime type of the source file, e.g. image/jpeg.
	SourceMime string
}

// variantBlob is one encoded rendition ready for upload.
type variantBlob struct {
	name   media.VariantName
	blob   []byte
	width  int
	height int
	mime   string
}

// Upload runs the full flow for one source image and returns the confirmed
// media record.
func (c *Client) Upload(ctx context.Context, source []byte, params Params) (*database.MediaRecord, error) {
	if params.BaseName == "" {
		return nil, fmt.Errorf("baseName is required")
	}
	if params.Name == "" {
		params.Name = params.BaseName
	}
	if params.AltText == "" {
		return nil, fmt.Errorf("altText is required")
	}

	blobs, err := c.encodeVariants(ctx, source, params)
	if err != nil {
		return nil, err
	}

	placeholder, err := media.Placeholder(source)
	if err != nil {
		logging.Warn("Failed to build placeholder for %s: %v", params.BaseName, err)
		placeholder = ""
	}

	uploaded, err := c.uploadVariants(ctx, params, blobs)
	if err != nil {
		return nil, err
	}

	return c.confirm(ctx, params, uploaded, blobs, placeholder)
}

// encodeVariants produces every required sized rendition, plus the original
// when requested, through the worker pool.
func (c *Client) encodeVariants(ctx context.Context, source []byte, params Params) ([]variantBlob, error) {
	blobs := make([]variantBlob, 0, len(media.RequiredVariants)+1)

	for _, name := range media.RequiredVariants {
		resized, err := c.pipeline.SubmitResize(ctx, media.ResizeInput{
			Data:     source,
			MaxWidth: name.MaxWidth(),
			Quality:  c.quality,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resize %s variant: %w", name, err)
		}

		blob := resized.Blob
		mime := media.FormatWebP.MimeType()

		// The resize path always yields WebP; a different target format
		// re-encodes the sized pixels.
		if c.format != media.FormatWebP {
			encoded, err := c.reencode(ctx, resized)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s variant: %w", name, err)
			}
			blob = encoded.Blob
			mime = encoded.OutputFormat.MimeType()
		}

		blobs = append(blobs, variantBlob{
			name:   name,
			blob:   blob,
			width:  resized.Width,
			height: resized.Height,
			mime:   mime,
		})
	}

	if params.IncludeOriginal {
		width, height, err := media.SourceDimensions(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read source dimensions: %w", err)
		}
		blobs = append(blobs, variantBlob{
			name:   media.VariantOriginal,
			blob:   source,
			width:  width,
			height: height,
			mime:   params.SourceMime,
		})
	}

	return blobs, nil
}

// reencode converts a resized WebP rendition into the client's target
// format.
func (c *Client) reencode(ctx context.Context, resized *media.ResizeOutput) (*media.EncodeOutput, error) {
	raw, width, height, err := media.DecodeRGBA(resized.Blob)
	if err != nil {
		return nil, err
	}
	return c.pipeline.SubmitEncode(ctx, media.EncodeInput{
		Buffer:  raw,
		Width:   width,
		Height:  height,
		Format:  c.format,
		Quality: c.quality,
	})
}

// uploadedVariant maps a variant name to its stored object key.
type uploadedVariant struct {
	r2Key string
}

// uploadVariants pushes every blob to the object store, preferring presigned
// PUTs and falling back to the server-side upload endpoint.
func (c *Client) uploadVariants(ctx context.Context, params Params, blobs []variantBlob) (map[media.VariantName]uploadedVariant, error) {
	slots, err := c.requestUploadURLs(ctx, params, blobs)
	if err != nil {
		var apiErr *APIError
		if isInternal(err, &apiErr) {
			logging.Info("Presigned uploads unavailable, falling back to server-side upload")
			return c.uploadThroughServer(ctx, params, blobs)
		}
		return nil, err
	}

	uploaded := make(map[media.VariantName]uploadedVariant, len(blobs))
	var mu sync.Mutex
	errs := make(chan error, len(blobs))
	var wg sync.WaitGroup

	for _, vb := range blobs {
		slot, ok := slots[string(vb.name)]
		if !ok {
			return nil, fmt.Errorf("server returned no upload slot for %s", vb.name)
		}

		wg.Add(1)
		go func(vb variantBlob, slot uploadSlot) {
			defer wg.Done()
			if err := c.putPresigned(ctx, slot.UploadURL, vb.blob, vb.mime); err != nil {
				errs <- fmt.Errorf("failed to upload %s: %w", vb.name, err)
				return
			}
			mu.Lock()
			uploaded[vb.name] = uploadedVariant{r2Key: slot.R2Key}
			mu.Unlock()
		}(vb, slot)
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return uploaded, nil
}

func isInternal(err error, target **APIError) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	*target = apiErr
	return apiErr.Code == "INTERNAL_ERROR"
}

type uploadSlot struct {
	UploadURL string `json:"uploadUrl"`
	R2Key     string `json:"r2Key"`
}

type uploadURLsData struct {
	UploadID string                `json:"uploadId"`
	URLs     map[string]uploadSlot `json:"urls"`
}

func (c *Client) requestUploadURLs(ctx context.Context, params Params, blobs []variantBlob) (map[string]uploadSlot, error) {
	names := make([]string, 0, len(blobs))
	for _, vb := range blobs {
		names = append(names, string(vb.name))
	}

	query := url.Values{}
	query.Set("baseName", params.BaseName)
	query.Set("variants", strings.Join(names, ","))
	query.Set("mimeType", c.format.MimeType())
	if params.IncludeOriginal && params.SourceMime != "" {
		query.Set("originalExt", extForMime(params.SourceMime))
	}

	var data uploadURLsData
	if err := c.getJSON(ctx, c.baseURL+"/api/media/upload-urls?"+query.Encode(), &data); err != nil {
		return nil, err
	}
	return data.URLs, nil
}

func extForMime(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/avif":
		return "avif"
	default:
		return "webp"
	}
}

// putPresigned uploads one blob directly to the object store.
func (c *Client) putPresigned(ctx context.Context, url string, blob []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(blob))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("object store returned %d", resp.StatusCode)
	}
	return nil
}

// uploadThroughServer is the fallback path: each blob goes through the
// upload-variant endpoint, one at a time.
func (c *Client) uploadThroughServer(ctx context.Context, params Params, blobs []variantBlob) (map[media.VariantName]uploadedVariant, error) {
	uploadID := uuid.NewString()
	uploaded := make(map[media.VariantName]uploadedVariant, len(blobs))

	for _, vb := range blobs {
		key, err := c.postVariant(ctx, params.BaseName, uploadID, vb)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", vb.name, err)
		}
		uploaded[vb.name] = uploadedVariant{r2Key: key}
	}
	return uploaded, nil
}

func (c *Client) postVariant(ctx context.Context, baseName, uploadID string, vb variantBlob) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fmt.Sprintf("%s-%s.%s", baseName, vb.name, extForMime(vb.mime)))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(vb.blob); err != nil {
		return "", err
	}
	mw.WriteField("variantName", string(vb.name))
	mw.WriteField("baseName", baseName)
	mw.WriteField("uploadId", uploadID)
	mw.WriteField("width", strconv.Itoa(vb.width))
	mw.WriteField("height", strconv.Itoa(vb.height))
	if err := mw.Close(); err != nil {
		return "", err
	}

	var data struct {
		R2Key string `json:"r2Key"`
	}
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/media/upload-variant",
		&body, mw.FormDataContentType(), &data)
	if err != nil {
		return "", err
	}
	return data.R2Key, nil
}

// confirm materializes the media record once every variant is stored.
func (c *Client) confirm(ctx context.Context, params Params, uploaded map[media.VariantName]uploadedVariant, blobs []variantBlob, placeholder string) (*database.MediaRecord, error) {
	variants := make(map[string]map[string]interface{}, len(blobs))
	for _, vb := range blobs {
		uv, ok := uploaded[vb.name]
		if !ok {
			return nil, fmt.Errorf("variant %s was never uploaded", vb.name)
		}
		size := int64(len(vb.blob))
		variants[string(vb.name)] = map[string]interface{}{
			"r2Key":     uv.r2Key,
			"width":     vb.width,
			"height":    vb.height,
			"sizeBytes": size,
		}
	}

	body := map[string]interface{}{
		"name":        params.Name,
		"altText":     params.AltText,
		"caption":     params.Caption,
		"credit":      params.Credit,
		"aspectRatio": params.AspectRatio,
		"mimeType":    c.format.MimeType(),
		"placeholder": placeholder,
		"variants":    variants,
	}
	if params.FocalPoint != nil {
		body["focalPoint"] = params.FocalPoint
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var record database.MediaRecord
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/media/confirm",
		bytes.NewReader(raw), "application/json", &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, "", target)
}

// doJSON performs one API request and decodes the envelope, converting error
// envelopes into *APIError.
func (c *Client) doJSON(ctx context.Context, method, url string, body io.Reader, contentType string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Code    string          `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid response from %s: %w", url, err)
	}

	if !envelope.Success {
		return &APIError{Status: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}
	if target != nil {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("invalid data from %s: %w", url, err)
		}
	}
	return nil
}
