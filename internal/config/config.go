package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	DBPath      string           `json:"db_path"`
	NoteDir     string           `json:"note_dir"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Pipeline    PipelineConfig   `json:"pipeline"`
	Vision      VisionConfig     `json:"vision"`
	Chat        ChatConfig       `json:"chat"`
	Compile     CompileConfig    `json:"compile"`
	Archive     ArchiveConfig    `json:"archive"`
	Jobs        JobsConfig       `json:"jobs"`
}

type PipelineConfig struct {
	MaxWorkers  int `json:"max_workers"`
	MaxUploadMB int `json:"max_upload_mb"`
}

type VisionConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Data           interface{} `json:"data"`
}

type ChatConfig struct {
	FallbackModel          string `json:"fallback_model"`
	SymbolicTimeoutSeconds int    `json:"symbolic_timeout_seconds"`
	FallbackTimeoutSeconds int    `json:"fallback_timeout_seconds"`
	CacheSize              int    `json:"cache_size"`
	CacheTTLMinutes        int    `json:"cache_ttl_minutes"`
	RateLimitSeconds       int    `json:"rate_limit_seconds"`
}

type CompileConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

type ArchiveConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	BuildSweepSpec string `json:"build_sweep_spec"`
	ReconcileSpec  string `json:"reconcile_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.NoteDir == "" {
		cfg.NoteDir = "notes_out"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Pipeline.MaxWorkers <= 0 {
		cfg.Pipeline.MaxWorkers = 3
	}
	if cfg.Pipeline.MaxUploadMB <= 0 {
		cfg.Pipeline.MaxUploadMB = 16
	}
	if cfg.Vision.Provider == "" {
		return nil, fmt.Errorf("vision.provider is required")
	}
	if cfg.Vision.Model == "" {
		return nil, fmt.Errorf("vision.model is required")
	}
	if cfg.Vision.TimeoutSeconds <= 0 {
		cfg.Vision.TimeoutSeconds = 180
	}
	if cfg.Chat.FallbackModel == "" {
		cfg.Chat.FallbackModel = cfg.Vision.Model
	}
	if cfg.Chat.SymbolicTimeoutSeconds <= 0 {
		cfg.Chat.SymbolicTimeoutSeconds = 5
	}
	if cfg.Chat.FallbackTimeoutSeconds <= 0 {
		cfg.Chat.FallbackTimeoutSeconds = 60
	}
	if cfg.Chat.CacheSize <= 0 {
		cfg.Chat.CacheSize = 4096
	}
	if cfg.Chat.CacheTTLMinutes <= 0 {
		cfg.Chat.CacheTTLMinutes = 120
	}
	if cfg.Compile.TimeoutSeconds <= 0 {
		cfg.Compile.TimeoutSeconds = 60
	}
	if cfg.Archive.Type != "" && cfg.Archive.Type != "local" && cfg.Archive.Type != "s3" {
		return nil, fmt.Errorf("archive.type must be local or s3")
	}
	return &cfg, nil
}
