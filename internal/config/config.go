// Package config loads Apprentice's layered configuration the way
// untoldecay/BeadsLog's internal/config does: a package-level spf13/viper
// instance, config file discovery by walking up from the working directory,
// then $APPRENTICE_HOME, then the user's home directory, environment
// variable overrides, and ${VAR} expansion over string values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// HybridWeights holds the default RRF channel weights (spec §4.12).
type HybridWeights struct {
	FTS    float64 `mapstructure:"fts"`
	Vector float64 `mapstructure:"vector"`
}

// Config is the fully resolved, ${VAR}-expanded configuration (spec §6).
type Config struct {
	Home string

	IndexerSyncInterval  time.Duration `mapstructure:"-"`
	IndexerMaxFileSize   int64         `mapstructure:"-"`
	IndexerMaxContentStore int64       `mapstructure:"-"`
	IndexerMaxEmbedSize  int64         `mapstructure:"-"`

	EmbeddingsEnabled bool   `mapstructure:"-"`
	EmbeddingsModel   string `mapstructure:"-"`

	ChatImportEnabled            bool          `mapstructure:"-"`
	ChatImportInterval           time.Duration `mapstructure:"-"`
	ChatImportExtractToolCalls   bool          `mapstructure:"-"`
	ChatImportToolCallsAsEvents  bool          `mapstructure:"-"`
	ChatImportMaxMessageLength   int           `mapstructure:"-"`
	ChatImportMaxToolOutputLength int         `mapstructure:"-"`

	SearchDefaultMode    string        `mapstructure:"-"`
	SearchHybridWeights  HybridWeights `mapstructure:"-"`
}

var v *viper.Viper

// Load discovers config.yaml per the precedence above, loads .env first so
// AutomaticEnv and ${VAR} expansion both observe it, applies defaults for
// every key in spec §6, and returns the expanded Config.
func Load() (*Config, error) {
	home := apprenticeHome()

	if envFile := filepath.Join(home, ".env"); fileExists(envFile) {
		_ = godotenv.Load(envFile) // best-effort; missing/malformed .env is not fatal
	}

	v = viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if dir := findConfigDirUpwards(); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(home)

	v.SetEnvPrefix("APPRENTICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("apprentice/config: read config: %w", err)
		}
		// No config.yaml anywhere — defaults and env vars still apply.
	}

	cfg := &Config{
		Home:                           home,
		IndexerSyncInterval:            v.GetDuration("indexer.syncinterval"),
		IndexerMaxFileSize:             v.GetInt64("indexer.maxfilesize"),
		IndexerMaxContentStore:         v.GetInt64("indexer.maxcontentstore"),
		IndexerMaxEmbedSize:            v.GetInt64("indexer.maxembedsize"),
		EmbeddingsEnabled:              v.GetBool("embeddings.enabled"),
		EmbeddingsModel:                expand(v.GetString("embeddings.model")),
		ChatImportEnabled:              v.GetBool("chatimport.enabled"),
		ChatImportInterval:             time.Duration(v.GetInt64("chatimport.intervalms")) * time.Millisecond,
		ChatImportExtractToolCalls:     v.GetBool("chatimport.extracttoolcalls"),
		ChatImportToolCallsAsEvents:    v.GetBool("chatimport.toolcallsasevents"),
		ChatImportMaxMessageLength:     v.GetInt("chatimport.maxmessagelength"),
		ChatImportMaxToolOutputLength:  v.GetInt("chatimport.maxtooloutputlength"),
		SearchDefaultMode:              v.GetString("search.defaultmode"),
		SearchHybridWeights: HybridWeights{
			FTS:    v.GetFloat64("search.hybridweights.fts"),
			Vector: v.GetFloat64("search.hybridweights.vector"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("indexer.syncinterval", 60*time.Second)
	v.SetDefault("indexer.maxfilesize", int64(1<<20))    // 1 MiB
	v.SetDefault("indexer.maxcontentstore", int64(100<<10)) // 100 KiB
	v.SetDefault("indexer.maxembedsize", int64(10<<10))  // 10 KiB

	v.SetDefault("embeddings.enabled", false)
	v.SetDefault("embeddings.model", "ollama/nomic-embed-text")

	v.SetDefault("chatimport.enabled", false)
	v.SetDefault("chatimport.intervalms", int64(5*time.Minute/time.Millisecond))
	v.SetDefault("chatimport.extracttoolcalls", false)
	v.SetDefault("chatimport.toolcallsasevents", false)
	v.SetDefault("chatimport.maxmessagelength", 10000)
	v.SetDefault("chatimport.maxtooloutputlength", 2000)

	v.SetDefault("search.defaultmode", "hybrid")
	v.SetDefault("search.hybridweights.fts", 0.4)
	v.SetDefault("search.hybridweights.vector", 0.6)
}

// apprenticeHome resolves $APPRENTICE_HOME, defaulting to ~/.apprentice.
func apprenticeHome() string {
	if h := os.Getenv("APPRENTICE_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".apprentice"
	}
	return filepath.Join(home, ".apprentice")
}

// findConfigDirUpwards walks up from the working directory looking for a
// .apprentice/config.yaml, the way BeadsLog walks up for .beads/config.yaml.
func findConfigDirUpwards() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".apprentice")
		if fileExists(filepath.Join(candidate, "config.yaml")) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// expand applies ${VAR} token expansion from the process environment to a
// single config string value (spec §6: "${VAR} tokens in string values are
// expanded from process environment at load time").
func expand(s string) string {
	return os.Expand(s, func(name string) string { return os.Getenv(name) })
}

// GetDuration exposes a raw viper duration lookup for callers (e.g. the
// scheduler) that need a key not promoted onto Config, mirroring BeadsLog's
// config.GetDuration helper.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}
