package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	// DedupWindowSecs is the trailing window in which an identical create is treated as a
	// double submission and answered with the existing note.
	DedupWindowSecs int `json:"dedup_window_secs" yaml:"dedup_window_secs"`

	// MatchWindowSecs is the symmetric window around a rich note's creation time used to
	// locate its legacy counterpart. Independent of DedupWindowSecs.
	MatchWindowSecs int `json:"match_window_secs" yaml:"match_window_secs"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// LegacyDriver selects the legacy note store: "sqlite" (a separate legacy.db next to
	// the rich store) or "postgres".
	LegacyDriver string `json:"legacy_driver,omitempty" yaml:"legacy_driver,omitempty"`

	// LegacyDSN is the connection string for the legacy store. Ignored for sqlite unless set.
	LegacyDSN string `json:"legacy_dsn,omitempty" yaml:"legacy_dsn,omitempty"`

	// RedisURL enables the Redis notification queue. Empty means deliveries are only logged.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// NotificationQueue is the Redis list key used for queued deliveries.
	NotificationQueue string `json:"notification_queue,omitempty" yaml:"notification_queue,omitempty"`

	// AttachmentBackend is "local" (files under AttachmentDir) or "minio".
	AttachmentBackend string `json:"attachment_backend,omitempty" yaml:"attachment_backend,omitempty"`
	AttachmentDir     string `json:"attachment_dir,omitempty" yaml:"attachment_dir,omitempty"`

	MinioEndpoint  string `json:"minio_endpoint,omitempty" yaml:"minio_endpoint,omitempty"`
	MinioAccessKey string `json:"minio_access_key,omitempty" yaml:"minio_access_key,omitempty"`
	MinioSecretKey string `json:"minio_secret_key,omitempty" yaml:"minio_secret_key,omitempty"`
	MinioBucket    string `json:"minio_bucket,omitempty" yaml:"minio_bucket,omitempty"`
	MinioUseSSL    bool   `json:"minio_use_ssl,omitempty" yaml:"minio_use_ssl,omitempty"`

	// PermissionMode is "open" (anyone may edit any note) or "owner" (only the note's owner
	// or one of Admins).
	PermissionMode string   `json:"permission_mode,omitempty" yaml:"permission_mode,omitempty"`
	Admins         []string `json:"admins,omitempty" yaml:"admins,omitempty"`

	// DefaultUser is the identity used by the CLI and MCP server when none is supplied.
	DefaultUser string `json:"default_user,omitempty" yaml:"default_user,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DedupWindowSecs:   60,
		MatchWindowSecs:   60,
		LegacyDriver:      "sqlite",
		NotificationQueue: "notebridge:notifications",
		AttachmentBackend: "local",
		MinioBucket:       "notebridge",
		PermissionMode:    "open",
		DefaultUser:       "Administrator",
		LogLevel:          "info",
	}
}

// Load loads configuration from baseDir/config.json (or config.yaml).
// Returns default config if neither file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.notebridge.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(findConfigFile(baseDir))
	if err != nil {
		return nil, err
	}
	return ApplyEnv(Merge(DefaultConfig(), cfg)), nil
}

// LoadWithRepo loads configuration from both global (~/.notebridge) and repo (.notebridge)
// directories. Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(findConfigFile(globalDir))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo, then environment
	return ApplyEnv(Merge(Merge(DefaultConfig(), global), repo)), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .notebridge config file.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		if path := findConfigFile(filepath.Join(dir, ".notebridge")); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// findConfigFile returns config.json or config.yaml under dir, preferring JSON.
func findConfigFile(dir string) string {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or missing (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides selected fields from NOTEBRIDGE_* environment variables.
func ApplyEnv(cfg *Config) *Config {
	cfg.DefaultUser = getenv("NOTEBRIDGE_USER", cfg.DefaultUser)
	cfg.RedisURL = getenv("NOTEBRIDGE_REDIS_URL", cfg.RedisURL)
	cfg.LegacyDSN = getenv("NOTEBRIDGE_LEGACY_DSN", cfg.LegacyDSN)
	cfg.LogLevel = getenv("NOTEBRIDGE_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DedupWindowSecs:   pickInt(overlay.DedupWindowSecs, base.DedupWindowSecs),
		MatchWindowSecs:   pickInt(overlay.MatchWindowSecs, base.MatchWindowSecs),
		DBMaxOpenConns:    pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LegacyDriver:      pickString(overlay.LegacyDriver, base.LegacyDriver),
		LegacyDSN:         pickString(overlay.LegacyDSN, base.LegacyDSN),
		RedisURL:          pickString(overlay.RedisURL, base.RedisURL),
		NotificationQueue: pickString(overlay.NotificationQueue, base.NotificationQueue),
		AttachmentBackend: pickString(overlay.AttachmentBackend, base.AttachmentBackend),
		AttachmentDir:     pickString(overlay.AttachmentDir, base.AttachmentDir),
		MinioEndpoint:     pickString(overlay.MinioEndpoint, base.MinioEndpoint),
		MinioAccessKey:    pickString(overlay.MinioAccessKey, base.MinioAccessKey),
		MinioSecretKey:    pickString(overlay.MinioSecretKey, base.MinioSecretKey),
		MinioBucket:       pickString(overlay.MinioBucket, base.MinioBucket),
		PermissionMode:    pickString(overlay.PermissionMode, base.PermissionMode),
		DefaultUser:       pickString(overlay.DefaultUser, base.DefaultUser),
		LogLevel:          pickString(overlay.LogLevel, base.LogLevel),
	}

	// Booleans: overlay wins if true, else base
	result.MinioUseSSL = base.MinioUseSSL || overlay.MinioUseSSL

	// Arrays: merge and deduplicate
	result.Admins = mergeStringSlice(base.Admins, overlay.Admins)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
