// Command apprenticed is Apprentice's indexing daemon: it walks registered
// contexts, tails the bash and chat event logs, runs chat import, generates
// embeddings, and checkpoints the database on a fixed schedule (spec C14,
// §4.14), until it receives SIGINT/SIGTERM.
//
// Usage:
//
//	apprenticed [flags]
//
// Flags:
//
//	--home    $APPRENTICE_HOME override (default: resolved by internal/config)
//	--ollama  Ollama base URL, used when embeddings.model is an ollama/* ref
//
// Configuration beyond these two overrides comes entirely from
// memory/config.yaml and environment variables (spec §6); see
// internal/config for the full key set and precedence.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AprovanLabs/apprentice/internal/applog"
	"github.com/AprovanLabs/apprentice/internal/chatimport"
	"github.com/AprovanLabs/apprentice/internal/config"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/embedding"
	"github.com/AprovanLabs/apprentice/internal/extract"
	"github.com/AprovanLabs/apprentice/internal/registry"
	"github.com/AprovanLabs/apprentice/internal/scheduler"
	"github.com/AprovanLabs/apprentice/internal/version"
)

func main() {
	homeFlag := flag.String("home", "", "override $APPRENTICE_HOME")
	ollamaURL := flag.String("ollama", "http://localhost:11434", "Ollama base URL for ollama/* embedding models")
	flag.Parse()

	if *homeFlag != "" {
		os.Setenv("APPRENTICE_HOME", *homeFlag)
	}

	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("apprenticed: load config: %v", err)
	}

	memoryDir := filepath.Join(cfg.Home, "memory")
	for _, dir := range []string{memoryDir, filepath.Join(memoryDir, "logs"), filepath.Join(memoryDir, "scripts")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("apprenticed: create %s: %v", dir, err)
		}
	}

	pidPath := filepath.Join(cfg.Home, "indexer.pid")
	if err := writePIDFile(pidPath); err != nil {
		log.Fatalf("apprenticed: write pid file: %v", err)
	}
	defer os.Remove(pidPath)

	dbPath := filepath.Join(memoryDir, "index.db")
	store, err := dbstore.Open(dbPath)
	if err != nil {
		log.Fatalf("apprenticed: open store: %v", err)
	}

	appLog := applog.NewStderr()
	reg := registry.New(store, version.NewGit(0))
	extractors := extract.NewRegistry()

	scriptsCtx := filepath.Join(memoryDir, "scripts")
	if _, err := reg.Get(context.Background(), registry.Slugify("scripts")); err != nil {
		if _, addErr := reg.Add(context.Background(), scriptsCtx, registry.AddOpts{Name: "scripts"}); addErr != nil {
			appLog.Errorf("apprenticed: register scripts context: %v", addErr)
		}
	}

	var batcher *embedding.Batcher
	if cfg.EmbeddingsEnabled {
		provider, err := embedding.New(cfg.EmbeddingsModel, *ollamaURL)
		if err != nil {
			log.Fatalf("apprenticed: build embedding provider: %v", err)
		}
		batcher = embedding.NewBatcher(store, provider)
	}

	var importer *chatimport.Importer
	if cfg.ChatImportEnabled {
		opts := chatimport.Options{
			ExtractToolCalls:    cfg.ChatImportExtractToolCalls,
			ToolCallsAsEvents:   cfg.ChatImportToolCallsAsEvents,
			MaxMessageLength:    cfg.ChatImportMaxMessageLength,
			MaxToolOutputLength: cfg.ChatImportMaxToolOutputLength,
		}
		// No concrete ChatSourceAdapter ships built in (spec §6 leaves adapter
		// registration to the deployment); the importer runs each cycle with
		// whatever adapters a future build registers here.
		importer = chatimport.NewImporter(store, filepath.Join(memoryDir, "logs", "chat.log"), opts)
	}

	sched := scheduler.New(store, reg, extractors, importer, batcher, appLog, scheduler.Config{
		IndexInterval:      cfg.IndexerSyncInterval,
		ChatImportInterval: cfg.ChatImportInterval,
		CheckpointInterval: 5 * time.Minute,
		EmbeddingBatchSize: 100,
		ChatImportEnabled:  cfg.ChatImportEnabled,
		BashLogPath:        filepath.Join(memoryDir, "logs", "bash.log"),
		ChatLogPath:        filepath.Join(memoryDir, "logs", "chat.log"),
	})

	stopWatch, err := config.Watch(func(_ *config.Config, watchErr error) {
		if watchErr != nil {
			appLog.Errorf("apprenticed: config watch: %v", watchErr)
			return
		}
		appLog.Infof("apprenticed: config.yaml changed; restart to apply")
	})
	if err != nil {
		appLog.Warnf("apprenticed: config hot-reload disabled: %v", err)
	} else {
		defer stopWatch()
	}

	appLog.Infof("apprenticed: starting (home=%s, embeddings=%v, chatImport=%v)", cfg.Home, cfg.EmbeddingsEnabled, cfg.ChatImportEnabled)
	if err := sched.Run(context.Background()); err != nil {
		log.Fatalf("apprenticed: %v", err)
	}
}

// writePIDFile records the running process id (spec §6 filesystem layout:
// "indexer.pid | Daemon pid file").
func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
