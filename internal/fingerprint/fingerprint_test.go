package fingerprint

import (
	"strings"
	"testing"

	"github.com/examhall/examhall-backend/internal/model"
)

func sampleSignals() model.FingerprintSignals {
	return model.FingerprintSignals{
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64)",
		Language:            "en-US",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		ColorDepth:          24,
		TimezoneOffset:      -420,
		CookiesEnabled:      true,
		DoNotTrack:          "1",
		HardwareConcurrency: 8,
		Platform:            "Linux x86_64",
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(sampleSignals())
	b := Compute(sampleSignals())
	if a != b {
		t.Fatalf("same signals produced different fingerprints: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, Prefix) {
		t.Fatalf("fingerprint %q missing prefix %q", a, Prefix)
	}
}

func TestCompute_SignalSensitive(t *testing.T) {
	a := Compute(sampleSignals())

	other := sampleSignals()
	other.ScreenWidth = 1366
	b := Compute(other)

	if a == b {
		t.Fatal("different signals produced identical fingerprints")
	}
}

func TestCompute_EmptySignalsFallsBack(t *testing.T) {
	a := Compute(model.FingerprintSignals{})
	if !strings.HasPrefix(a, Prefix+"fb_") {
		t.Fatalf("expected fallback fingerprint, got %q", a)
	}
	// The fallback is deliberately non-deterministic.
	b := Compute(model.FingerprintSignals{})
	if a == b {
		t.Fatal("fallback fingerprints should not collide")
	}
}
