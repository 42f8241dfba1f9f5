package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	originalEnv := os.Getenv("ENCODE_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("ENCODE_WORKERS", originalEnv)
		} else {
			os.Unsetenv("ENCODE_WORKERS")
		}
	}()

	os.Unsetenv("ENCODE_WORKERS")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Tiny multiplier clamps to one worker",
			multiplier: 0.01,
			limit:      0,
			minExpect:  1,
			maxExpect:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	originalEnv := os.Getenv("ENCODE_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("ENCODE_WORKERS", originalEnv)
		} else {
			os.Unsetenv("ENCODE_WORKERS")
		}
	}()

	os.Setenv("ENCODE_WORKERS", "3")
	if got := Count(1.0, 0); got != 3 {
		t.Errorf("expected override of 3 workers, got %d", got)
	}

	// Limit still applies to the override
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("expected limit of 2 to cap override, got %d", got)
	}

	// Invalid override falls back to calculation
	os.Setenv("ENCODE_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got < 1 {
		t.Errorf("expected at least 1 worker with invalid override, got %d", got)
	}
}

func TestHelpers(t *testing.T) {
	os.Unsetenv("ENCODE_WORKERS")

	if got := ForCPU(4); got < 1 || got > 4 {
		t.Errorf("ForCPU(4) = %d, want 1..4", got)
	}
	if got := ForIO(8); got < 1 || got > 8 {
		t.Errorf("ForIO(8) = %d, want 1..8", got)
	}
	if got := ForMixed(6); got < 1 || got > 6 {
		t.Errorf("ForMixed(6) = %d, want 1..6", got)
	}
}
