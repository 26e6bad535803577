package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected default driver 'postgres', got '%s'", cfg.Database.Driver)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default MaxOpenConns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Models.Dir != "data/models" {
		t.Errorf("expected default models dir, got '%s'", cfg.Models.Dir)
	}
}

func TestLoadEmbeddedDetectorDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Detection.Detector.MinSize != 100 {
		t.Errorf("expected detector min_size 100, got %d", cfg.Detection.Detector.MinSize)
	}
	if cfg.Detection.Detector.ScaleFactor != 1.1 {
		t.Errorf("expected detector scale_factor 1.1, got %f", cfg.Detection.Detector.ScaleFactor)
	}
	if cfg.Detection.Recognizer.PatchSize != 64 {
		t.Errorf("expected recognizer patch_size 64, got %d", cfg.Detection.Recognizer.PatchSize)
	}
	if cfg.Detection.Recognizer.Threshold != 0.35 {
		t.Errorf("expected recognizer threshold 0.35, got %f", cfg.Detection.Recognizer.Threshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")
	t.Setenv("CASCADE_PATH", "/opt/models/facefinder")

	cfg := Load()

	if cfg.Database.Driver != "mysql" {
		t.Errorf("expected driver 'mysql', got '%s'", cfg.Database.Driver)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected MaxOpenConns 10, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Models.Cascade() != "/opt/models/facefinder" {
		t.Errorf("unexpected cascade path '%s'", cfg.Models.Cascade())
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "not-a-number")

	cfg := Load()

	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected fallback 5 for invalid value, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestCascadeDefaultsToModelsDir(t *testing.T) {
	m := ModelsConfig{Dir: "data/models"}

	if m.Cascade() != "data/models/facefinder" {
		t.Errorf("unexpected cascade path '%s'", m.Cascade())
	}
}
