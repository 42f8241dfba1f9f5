package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	props, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if props.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", props.Server.Port)
	}
	if props.S3.PresignExpiry != 10*time.Minute {
		t.Errorf("expected 10m presign expiry, got %s", props.S3.PresignExpiry)
	}
	if props.Media.Folder != "media" {
		t.Errorf("expected default media folder, got %s", props.Media.Folder)
	}
	if props.Limits.Requests != 60 {
		t.Errorf("expected default rate limit of 60, got %d", props.Limits.Requests)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	os.Unsetenv("AUTH_JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when AUTH_JWT_SECRET is missing")
	}
}

func TestLoadPublicBaseURLRequiredWithEndpoint(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_PUBLIC_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when S3_ENDPOINT is set without S3_PUBLIC_BASE_URL")
	}
}

func TestPresignEnabled(t *testing.T) {
	tests := []struct {
		name     string
		s3       S3Properties
		expected bool
	}{
		{
			name: "Fully configured",
			s3: S3Properties{
				Endpoint:  "s3.example.com",
				AccessKey: "key",
				SecretKey: "secret",
			},
			expected: true,
		},
		{
			name:     "No endpoint",
			s3:       S3Properties{AccessKey: "key", SecretKey: "secret"},
			expected: false,
		},
		{
			name:     "No credentials",
			s3:       S3Properties{Endpoint: "s3.example.com"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Properties{S3: tt.s3}
			if got := p.PresignEnabled(); got != tt.expected {
				t.Errorf("PresignEnabled() = %v, want %v", got, tt.expected)
			}
		})
	}
}
