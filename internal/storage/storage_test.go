package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

// fakeMinio records calls and returns canned results.
type fakeMinio struct {
	presignCalls []string
	putCalls     []string
	removeCalls  []string
	presignErr   error
	putErr       error
	removeErr    error
	lastExpiry   time.Duration
}

func (f *fakeMinio) PresignedPutObject(_ context.Context, _, objectName string, expires time.Duration) (*url.URL, error) {
	f.presignCalls = append(f.presignCalls, objectName)
	f.lastExpiry = expires
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return url.Parse("https://bucket.example.com/" + objectName + "?signature=abc")
}

func (f *fakeMinio) PutObject(_ context.Context, _, objectName string, reader io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putCalls = append(f.putCalls, objectName)
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	n, _ := io.Copy(io.Discard, reader)
	if size >= 0 && n != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	return minio.UploadInfo{Key: objectName, Size: n}, nil
}

func (f *fakeMinio) RemoveObject(_ context.Context, _, objectName string, _ minio.RemoveObjectOptions) error {
	f.removeCalls = append(f.removeCalls, objectName)
	return f.removeErr
}

func newTestClient(fake *fakeMinio) *Client {
	return &Client{
		client:        fake,
		bucket:        "freecipies",
		publicBaseURL: "https://cdn.example.com",
		presignExpiry: 10 * time.Minute,
		presignable:   true,
	}
}

func TestPresignedPut(t *testing.T) {
	t.Parallel()

	fake := &fakeMinio{}
	client := newTestClient(fake)

	u, err := client.PresignedPut(context.Background(), "media/soup-lg-1.webp")
	if err != nil {
		t.Fatalf("PresignedPut failed: %v", err)
	}
	if !strings.Contains(u, "media/soup-lg-1.webp") {
		t.Errorf("presigned url missing key: %s", u)
	}
	if fake.lastExpiry != 10*time.Minute {
		t.Errorf("expected 10m expiry, got %s", fake.lastExpiry)
	}
}

func TestPresignedPutError(t *testing.T) {
	t.Parallel()

	fake := &fakeMinio{presignErr: errors.New("boom")}
	client := newTestClient(fake)

	if _, err := client.PresignedPut(context.Background(), "media/x.webp"); err == nil {
		t.Error("expected error from presign failure")
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	fake := &fakeMinio{}
	client := newTestClient(fake)

	data := []byte("fake image bytes")
	err := client.Upload(context.Background(), "media/soup-md-1.webp", bytes.NewReader(data), int64(len(data)), "image/webp")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if len(fake.putCalls) != 1 || fake.putCalls[0] != "media/soup-md-1.webp" {
		t.Errorf("unexpected put calls: %v", fake.putCalls)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	fake := &fakeMinio{}
	client := newTestClient(fake)

	if err := client.Remove(context.Background(), "media/soup-lg-1.webp"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(fake.removeCalls) != 1 {
		t.Errorf("expected 1 remove call, got %d", len(fake.removeCalls))
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := newTestClient(&fakeMinio{})

	tests := []struct {
		key      string
		expected string
	}{
		{"media/soup-lg-1.webp", "https://cdn.example.com/media/soup-lg-1.webp"},
		{"/media/leading-slash.webp", "https://cdn.example.com/media/leading-slash.webp"},
	}

	for _, tt := range tests {
		if got := client.PublicURL(tt.key); got != tt.expected {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.key, got, tt.expected)
		}
	}
}

func TestSanitizeBaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "soup", "soup"},
		{"Spaces become dashes", "tomato soup", "tomato-soup"},
		{"Path traversal stripped", "../../etc/passwd", "etcpasswd"},
		{"Unicode stripped", "sopa-de-ñame", "sopa-de-ame"},
		{"Leading dots trimmed", "...hidden", "hidden"},
		{"Nothing survives", "///", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBaseName(tt.input); got != tt.expected {
				t.Errorf("SanitizeBaseName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		variant  string
		expected string
	}{
		{"Sized variant carries suffix", "lg", "media/soup-lg-u1.webp"},
		{"Original has no suffix", "original", "media/soup-u1.webp"},
		{"Xs variant", "xs", "media/soup-xs-u1.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildObjectKey("media", "soup", tt.variant, "u1", "webp")
			if got != tt.expected {
				t.Errorf("BuildObjectKey = %q, want %q", got, tt.expected)
			}
		})
	}

	// Extension dots are normalized
	if got := BuildObjectKey("media", "soup", "lg", "u1", ".webp"); got != "media/soup-lg-u1.webp" {
		t.Errorf("expected dot-prefixed ext normalized, got %q", got)
	}
}
