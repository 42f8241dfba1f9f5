package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/config"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
)

// fakeStore is an in-memory ObjectStore recording every call.
type fakeStore struct {
	mu         sync.Mutex
	presign    bool
	presigned  []string
	uploaded   []string
	removed    []string
	failRemove map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{presign: true, failRemove: map[string]bool{}}
}

func (f *fakeStore) PresignedPut(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.presign {
		return "", errors.New("presign disabled")
	}
	f.presigned = append(f.presigned, key)
	return "https://bucket.example.com/" + key + "?X-Amz-Signature=test", nil
}

func (f *fakeStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove[key] {
		return errors.New("remove failed")
	}
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeStore) PresignEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presign
}

func (f *fakeStore) removedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

// newTestHandlers wires Handlers against a temp sqlite file and a fake
// object store, with no middleware.
func newTestHandlers(t *testing.T) (*Handlers, *mux.Router, *fakeStore) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()

	props := &config.Properties{}
	props.Media.Folder = "media"
	props.S3.PublicBaseURL = "https://cdn.example.com"

	h := New(db, store, props)

	root := mux.NewRouter()
	api := root.PathPrefix("/api").Subrouter()
	h.Register(root, api)

	return h, root, store
}

// doJSON performs a request and decodes the envelope.
func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	var envelope map[string]json.RawMessage
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

// decodeData unmarshals the data field of a success envelope into target.
func decodeData(t *testing.T, envelope map[string]json.RawMessage, target interface{}) {
	t.Helper()
	raw, ok := envelope["data"]
	if !ok {
		t.Fatalf("envelope has no data field: %v", envelope)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// errorCode extracts the code field of an error envelope.
func errorCode(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var code string
	if raw, ok := envelope["code"]; ok {
		json.Unmarshal(raw, &code)
	}
	return code
}

// confirmBody builds a valid confirm request with all four required
// variants for the given base name.
func confirmBody(baseName string) map[string]interface{} {
	variants := map[string]interface{}{}
	for _, name := range []string{"lg", "md", "sm", "xs"} {
		variants[name] = map[string]interface{}{
			"r2Key":  fmt.Sprintf("media/%s-%s-abc123.webp", baseName, name),
			"width":  2048,
			"height": 1365,
		}
	}
	return map[string]interface{}{
		"name":     baseName,
		"altText":  "a " + baseName,
		"variants": variants,
	}
}

// confirmMedia inserts one record through the confirm endpoint and returns
// its id.
func confirmMedia(t *testing.T, router *mux.Router, baseName string) int64 {
	t.Helper()

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/media/confirm", confirmBody(baseName))
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm failed with %d: %s", rec.Code, rec.Body.String())
	}

	var record database.MediaRecord
	decodeData(t, envelope, &record)
	return record.ID
}
