// Package config loads the pipeline's tunables from environment
// variables (spec.md section 6), with an optional local YAML override
// file for development — the same Duration-wrapper-plus-env-override
// shape the reference backend's inference/config package uses, swapped
// from JSON-plus-env to YAML-plus-env because this CLI has no HTTP
// gateway config to carry.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reelforge/viralcut/internal/platform/envutil"
)

// Duration unmarshals from either a Go duration string ("5s") or a
// plain integer count of nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config carries every tunable named in spec.md section 6.
type Config struct {
	// MaxResidentMemoryMiB is the hard RAM ceiling the C2 memory
	// governor enforces across all resident backends. Env:
	// MAX_RESIDENT_MEMORY_MIB, default 3800.
	MaxResidentMemoryMiB int `yaml:"max_resident_memory_mib"`

	// JobWorkers is the size of the coordinator's job worker pool. Env:
	// JOB_WORKERS, default = logical CPUs / 2, min 1.
	JobWorkers int `yaml:"job_workers"`

	// SnapshotDir is where the C6 Snapshotter persists version blobs.
	// Env: SNAPSHOT_DIR, default "./data/snapshots". A "gs://bucket/prefix"
	// value routes the Snapshotter to the GCS-backed store instead of
	// the local filesystem store.
	SnapshotDir string `yaml:"snapshot_dir"`

	// AnchorDir is where VersionAnchor records are persisted, in a
	// namespace separate from the snapshot tree. Env: ANCHOR_DIR,
	// default "./data/version_metadata".
	AnchorDir string `yaml:"anchor_dir"`

	// SecretKey, when non-empty, enables HMAC-SHA256 signatures on
	// every registered blob (tamper detection). Env: SECRET_KEY,
	// optional.
	SecretKey string `yaml:"secret_key"`

	// StageTimeout and JobTimeout hold the stage grace periods and the
	// end-to-end job limit (defaults 200ms non-IO, 2s IO, 180s). The
	// coordinator applies its own built-in values and does not read
	// these fields.
	StageTimeoutNonIO Duration `yaml:"stage_timeout_non_io"`
	StageTimeoutIO    Duration `yaml:"stage_timeout_io"`
	JobTimeout        Duration `yaml:"job_timeout"`

	// DiversityThreshold is the C6 diversity-gate similarity cutoff
	// (spec.md 4.6); default 0.65.
	DiversityThreshold float64 `yaml:"diversity_threshold"`

	LogMode string `yaml:"log_mode"`

	// BackendBaseURL, when set, routes C2/C3 to the real HTTP-backed
	// GenerationBackend instead of the deterministic stub. Env:
	// BACKEND_BASE_URL, BACKEND_API_KEY, BACKEND_MODEL.
	BackendBaseURL string `yaml:"backend_base_url"`
	BackendAPIKey  string `yaml:"backend_api_key"`
	BackendModel   string `yaml:"backend_model"`

	// VideoURI, when set, is the gs://bucket/object source footage for
	// the subtitle track being reconstructed. Its presence routes scene
	// annotation to sceneintel.GCPProvider (Cloud Video Intelligence
	// shot-change detection); absent, scenes are derived synthetically
	// from segment timing alone. Env: VIDEO_URI.
	VideoURI string `yaml:"video_uri"`
}

func defaultConfig() *Config {
	return &Config{
		MaxResidentMemoryMiB: 3800,
		JobWorkers:           defaultJobWorkers(),
		SnapshotDir:          "./data/snapshots",
		AnchorDir:            "./data/version_metadata",
		StageTimeoutNonIO:    Duration{200 * time.Millisecond},
		StageTimeoutIO:       Duration{2 * time.Second},
		JobTimeout:           Duration{180 * time.Second},
		DiversityThreshold:   0.65,
		LogMode:              "development",
	}
}

func defaultJobWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// Load reads defaults, optionally overlays a YAML project file (path
// taken from VIRALCUT_CONFIG_PATH, or ./viralcut.yaml if present), then
// applies the environment-variable overrides named in spec.md section 6.
// Env vars always win over the file.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("VIRALCUT_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "viralcut.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	cfg.MaxResidentMemoryMiB = envutil.Int("MAX_RESIDENT_MEMORY_MIB", cfg.MaxResidentMemoryMiB)
	cfg.JobWorkers = envutil.Int("JOB_WORKERS", cfg.JobWorkers)
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_DIR")); v != "" {
		cfg.SnapshotDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ANCHOR_DIR")); v != "" {
		cfg.AnchorDir = v
	}
	if v := os.Getenv("SECRET_KEY"); strings.TrimSpace(v) != "" {
		cfg.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.LogMode = v
	}
	if v := strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")); v != "" {
		cfg.BackendBaseURL = v
	}
	if v := os.Getenv("BACKEND_API_KEY"); strings.TrimSpace(v) != "" {
		cfg.BackendAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("BACKEND_MODEL")); v != "" {
		cfg.BackendModel = v
	}
	if v := strings.TrimSpace(os.Getenv("VIDEO_URI")); v != "" {
		cfg.VideoURI = v
	}

	if cfg.MaxResidentMemoryMiB <= 0 {
		cfg.MaxResidentMemoryMiB = 3800
	}
	if cfg.JobWorkers <= 0 {
		cfg.JobWorkers = defaultJobWorkers()
	}
	if cfg.DiversityThreshold <= 0 {
		cfg.DiversityThreshold = 0.65
	}
	return cfg, nil
}
