package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed detector.yaml
var detectorYAML []byte

type Config struct {
	Database  DatabaseConfig
	Camera    CameraConfig
	Models    ModelsConfig
	Export    ExportConfig
	Detection DetectionConfig
}

type DatabaseConfig struct {
	// Driver selects the storage backend: "postgres" (default) or "mysql".
	Driver       string
	URL          string // PostgreSQL connection URL
	MySQLDSN     string // MySQL DSN (e.g. user:pass@tcp(localhost:3306)/attendance)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type CameraConfig struct {
	// StreamURL is an MJPEG stream endpoint (e.g. http://cam.local:8081/stream).
	// A plain directory path can be used instead for offline processing.
	StreamURL string
}

type ModelsConfig struct {
	// Dir holds the trained classifier artifact, the label map and the
	// detection cascade. Overwritten in place on retrain.
	Dir string
	// CascadePath points to the pigo facefinder cascade binary.
	// Defaults to <Dir>/facefinder when empty.
	CascadePath string
}

type ExportConfig struct {
	MasterPath string // full attendance report CSV
	DailyPath  string // per-day first-mark summary CSV
}

// DetectionConfig mirrors the embedded detector.yaml structure.
type DetectionConfig struct {
	Detector struct {
		MinSize        int     `yaml:"min_size"`
		MaxSize        int     `yaml:"max_size"`
		ShiftFactor    float64 `yaml:"shift_factor"`
		ScaleFactor    float64 `yaml:"scale_factor"`
		ScoreThreshold float64 `yaml:"score_threshold"`
		IoUThreshold   float64 `yaml:"iou_threshold"`
	} `yaml:"detector"`
	Recognizer struct {
		PatchSize int     `yaml:"patch_size"`
		Threshold float64 `yaml:"threshold"`
		Neighbors int     `yaml:"neighbors"`
	} `yaml:"recognizer"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var detection DetectionConfig
	if err := yaml.Unmarshal(detectorYAML, &detection); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded detector.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:       envString("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			MySQLDSN:     os.Getenv("MYSQL_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Camera: CameraConfig{
			StreamURL: os.Getenv("CAMERA_STREAM_URL"),
		},
		Models: ModelsConfig{
			Dir:         envString("MODELS_DIR", "data/models"),
			CascadePath: os.Getenv("CASCADE_PATH"),
		},
		Export: ExportConfig{
			MasterPath: envString("EXPORT_MASTER_PATH", "data/attendance_master.csv"),
			DailyPath:  envString("EXPORT_DAILY_PATH", "data/attendance_daily.csv"),
		},
		Detection: detection,
	}
}

// Cascade returns the effective cascade file path.
func (c *ModelsConfig) Cascade() string {
	if c.CascadePath != "" {
		return c.CascadePath
	}
	return c.Dir + "/facefinder"
}
