package main

import (
	"testing"
	"time"

	"github.com/banshee-data/motion.capture/internal/overlay"
)

// TestFlagDefaults verifies the flags exist with the defaults the README
// documents.
func TestFlagDefaults(t *testing.T) {
	if devMode == nil || *devMode {
		t.Errorf("expected -dev to default to false")
	}
	if fixturesDir == nil || *fixturesDir != "fixtures" {
		t.Errorf("expected -fixtures to default to %q", "fixtures")
	}
	if duration == nil || *duration != time.Duration(0) {
		t.Errorf("expected -duration to default to 0")
	}
	if overlayRows == nil || *overlayRows != overlay.DefaultSize {
		t.Errorf("expected -overlay-rows to default to %d", overlay.DefaultSize)
	}
	for name, v := range map[string]*string{
		"exercise":    exerciseName,
		"catalog":     catalogPath,
		"config":      configPath,
		"out":         outputDir,
		"journal":     journalPath,
		"listen":      listen,
		"grpc-listen": grpcListen,
	} {
		if v == nil {
			t.Fatalf("-%s flag not defined", name)
		}
		if *v != "" {
			t.Errorf("expected -%s to default to empty, got %q", name, *v)
		}
	}
}
