package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")
	SetOverride(0)

	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"io no limit", 2.0, 0, available * 2},
		{"mixed no limit", 1.5, 0, int(float64(available) * 1.5)},
		{"limit caps", 2.0, 1, 1},
		{"tiny multiplier floors at one", 0.01, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.want
			if want < 1 {
				want = 1
			}
			if got := Count(tt.multiplier, tt.limit); got != want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, want)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	SetOverride(0)

	tests := []struct {
		name     string
		envValue string
		limit    int
		want     int
	}{
		{"valid override", "4", 0, 4},
		{"override capped by limit", "10", 5, 5},
		{"override under limit", "3", 5, 3},
		{"invalid override ignored", "abc", 1, 1},
		{"zero override ignored", "0", 1, 1},
		{"negative override ignored", "-2", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.envValue)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, EnvOverride, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestSetOverrideBeatsEnvironment(t *testing.T) {
	t.Setenv(EnvOverride, "2")
	SetOverride(7)
	defer SetOverride(0)

	if got := ForIO(0); got != 7 {
		t.Errorf("ForIO(0) = %d, want 7", got)
	}
	if got := ForMixed(3); got != 3 {
		t.Errorf("ForMixed(3) = %d, want 3 (limit)", got)
	}

	SetOverride(-1)
	if got := ForIO(0); got != 2 {
		t.Errorf("ForIO(0) after reset = %d, want env value 2", got)
	}
}

func TestHelpersRespectLimits(t *testing.T) {
	t.Setenv(EnvOverride, "")
	SetOverride(0)

	for _, limit := range []int{1, 2, 16} {
		if got := ForIO(limit); got < 1 || got > limit {
			t.Errorf("ForIO(%d) = %d", limit, got)
		}
		if got := ForMixed(limit); got < 1 || got > limit {
			t.Errorf("ForMixed(%d) = %d", limit, got)
		}
	}
}
