package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath  string
	JSON        bool
	Plain       bool
	Select      string
	ResultsOnly bool
	Port        int
	LogLevel    string
	LogPretty   bool
	Timeout     string
	Retries     int
	NoCache     bool
	Oracle      string
	StageWait   string
}

type Settings struct {
	OutputMode        string
	SelectFields      []string
	ResultsOnly       bool
	Port              int
	LogLevel          string
	LogPretty         bool
	Timeout           time.Duration
	Retries           int
	StageDeadline     time.Duration
	Oracle            string // static or live
	LiveCongestion    bool
	PriceTTL          time.Duration
	CacheEnabled      bool
	CachePath         string
	CacheLockPath     string
	WorkflowStorePath string
	WorkflowLockPath  string
}

type fileConfig struct {
	Output  string `yaml:"output"`
	Port    *int   `yaml:"port"`
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`
	Log     struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`
	Workflow struct {
		StageDeadline string `yaml:"stage_deadline"`
		StorePath     string `yaml:"store_path"`
		LockPath      string `yaml:"lock_path"`
	} `yaml:"workflow"`
	Oracle struct {
		Mode           string `yaml:"mode"`
		PriceTTL       string `yaml:"price_ttl"`
		LiveCongestion *bool  `yaml:"live_congestion"`
	} `yaml:"oracle"`
	Cache struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.StageDeadline <= 0 {
		settings.StageDeadline = 2 * time.Minute
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	cacheDir, err := defaultCacheDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:        "json",
		Port:              8080,
		LogLevel:          "info",
		Timeout:           10 * time.Second,
		Retries:           2,
		StageDeadline:     2 * time.Minute,
		Oracle:            "static",
		PriceTTL:          5 * time.Minute,
		CacheEnabled:      true,
		CachePath:         filepath.Join(cacheDir, "prices.db"),
		CacheLockPath:     filepath.Join(cacheDir, "prices.lock"),
		WorkflowStorePath: filepath.Join(cacheDir, "workflows.db"),
		WorkflowLockPath:  filepath.Join(cacheDir, "workflows.lock"),
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "safestake", "config.yaml"), nil
}

func defaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "safestake"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Port != nil {
		settings.Port = *cfg.Port
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = strings.ToLower(cfg.Log.Level)
	}
	if cfg.Log.Pretty != nil {
		settings.LogPretty = *cfg.Log.Pretty
	}
	if cfg.Workflow.StageDeadline != "" {
		d, err := time.ParseDuration(cfg.Workflow.StageDeadline)
		if err != nil {
			return fmt.Errorf("config workflow.stage_deadline: %w", err)
		}
		settings.StageDeadline = d
	}
	if cfg.Workflow.StorePath != "" {
		settings.WorkflowStorePath = cfg.Workflow.StorePath
	}
	if cfg.Workflow.LockPath != "" {
		settings.WorkflowLockPath = cfg.Workflow.LockPath
	}
	if cfg.Oracle.Mode != "" {
		settings.Oracle = strings.ToLower(cfg.Oracle.Mode)
	}
	if cfg.Oracle.PriceTTL != "" {
		d, err := time.ParseDuration(cfg.Oracle.PriceTTL)
		if err != nil {
			return fmt.Errorf("config oracle.price_ttl: %w", err)
		}
		settings.PriceTTL = d
	}
	if cfg.Oracle.LiveCongestion != nil {
		settings.LiveCongestion = *cfg.Oracle.LiveCongestion
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SAFESTAKE_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("SAFESTAKE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Port = n
		}
	}
	if v := os.Getenv("SAFESTAKE_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SAFESTAKE_LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.LogPretty = b
		}
	}
	if v := os.Getenv("SAFESTAKE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SAFESTAKE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SAFESTAKE_STAGE_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.StageDeadline = d
		}
	}
	if v := os.Getenv("SAFESTAKE_ORACLE"); v != "" {
		settings.Oracle = strings.ToLower(v)
	}
	if v := os.Getenv("SAFESTAKE_LIVE_CONGESTION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.LiveCongestion = b
		}
	}
	if v := os.Getenv("SAFESTAKE_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("SAFESTAKE_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("SAFESTAKE_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("SAFESTAKE_WORKFLOWS_PATH"); v != "" {
		settings.WorkflowStorePath = v
	}
	if v := os.Getenv("SAFESTAKE_WORKFLOWS_LOCK_PATH"); v != "" {
		settings.WorkflowLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		parts := strings.Split(flags.Select, ",")
		fields := make([]string, 0, len(parts))
		for _, part := range parts {
			f := strings.TrimSpace(part)
			if f != "" {
				fields = append(fields, f)
			}
		}
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly

	if flags.Port > 0 {
		settings.Port = flags.Port
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogPretty {
		settings.LogPretty = true
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	if flags.Oracle != "" {
		settings.Oracle = strings.ToLower(flags.Oracle)
	}
	if flags.StageWait != "" {
		d, err := time.ParseDuration(flags.StageWait)
		if err != nil {
			return fmt.Errorf("parse --stage-deadline: %w", err)
		}
		settings.StageDeadline = d
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	if settings.Oracle != "static" && settings.Oracle != "live" {
		return fmt.Errorf("oracle must be static or live")
	}
	return nil
}
