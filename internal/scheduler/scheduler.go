// Package scheduler implements the daemon's periodic tick loop (spec C14,
// §4.14), grounded on untoldecay/BeadsLog's cmd/bd/daemon_event_loop.go for
// the ticker-plus-signal-channel shape, adapted from BeadsLog's
// event-driven file-watch loop to the spec's plain periodic ticks.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AprovanLabs/apprentice/internal/applog"
	"github.com/AprovanLabs/apprentice/internal/chatimport"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/discover"
	"github.com/AprovanLabs/apprentice/internal/embedding"
	"github.com/AprovanLabs/apprentice/internal/extract"
	"github.com/AprovanLabs/apprentice/internal/ingest"
	"github.com/AprovanLabs/apprentice/internal/registry"
)

// Config bundles the scheduler's tunables (spec §6 config keys).
type Config struct {
	IndexInterval      time.Duration
	ChatImportInterval time.Duration
	CheckpointInterval time.Duration
	EmbeddingBatchSize int
	ChatImportEnabled  bool
	BashLogPath        string
	ChatLogPath        string
}

// Scheduler runs the daemon's startup cycle and periodic ticks (spec C14).
type Scheduler struct {
	store      *dbstore.Store
	registry   *registry.Registry
	extractors *extract.Registry
	tailer     *ingest.LogTailer
	importer   *chatimport.Importer // nil when chat import is disabled
	batcher    *embedding.Batcher   // nil when embeddings are disabled
	log        *applog.Logger
	cfg        Config
}

// New builds a Scheduler. importer and batcher may be nil to match
// chatImport.enabled=false / embeddings.enabled=false.
func New(store *dbstore.Store, reg *registry.Registry, extractors *extract.Registry, importer *chatimport.Importer, batcher *embedding.Batcher, log *applog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		store: store, registry: reg, extractors: extractors,
		tailer: ingest.NewLogTailer(store, log), importer: importer, batcher: batcher,
		log: log, cfg: cfg,
	}
}

// IndexResult tallies one asset-indexing pass across all enabled contexts.
type IndexResult struct {
	Added, Updated, Skipped int
	Errors                  []error
}

// Run blocks running the startup cycle, then the periodic ticks, until
// ctx is cancelled or SIGINT/SIGTERM is received (spec §4.14). It returns
// nil on a clean signal-driven shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.runIndexCycle(ctx)
	if s.importer != nil && s.cfg.ChatImportEnabled {
		s.runChatImportCycle(ctx)
	}
	s.runEmbeddingPass(ctx)

	indexTicker := time.NewTicker(s.cfg.IndexInterval)
	defer indexTicker.Stop()

	var chatTicker *time.Ticker
	if s.importer != nil && s.cfg.ChatImportEnabled && s.cfg.ChatImportInterval > 0 {
		chatTicker = time.NewTicker(s.cfg.ChatImportInterval)
		defer chatTicker.Stop()
	}

	checkpointTicker := time.NewTicker(s.cfg.CheckpointInterval)
	defer checkpointTicker.Stop()

	var chatTickChan <-chan time.Time
	if chatTicker != nil {
		chatTickChan = chatTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			if err := s.store.Close(); err != nil {
				s.log.Errorf("apprentice/scheduler: close store: %v", err)
			}
			return nil

		case <-indexTicker.C:
			s.runIndexCycle(ctx)
			s.runEmbeddingPass(ctx)

		case <-chatTickChan:
			s.runChatImportCycle(ctx)

		case <-checkpointTicker.C:
			s.runCheckpoint(ctx)
		}
	}
}

// runIndexCycle implements the indexing tick (spec §4.14): indexAllContexts
// -> processBashLog -> processChatLog.
func (s *Scheduler) runIndexCycle(ctx context.Context) {
	indexResult := s.indexAllContexts(ctx)
	bashResult, bashErr := s.tailer.Process(ctx, "bash", s.cfg.BashLogPath)
	chatResult, chatErr := s.tailer.Process(ctx, "chat", s.cfg.ChatLogPath)

	added := indexResult.Added + indexResult.Updated
	inserted := 0
	if bashResult != nil {
		inserted += bashResult.Inserted
	}
	if chatResult != nil {
		inserted += chatResult.Inserted
	}
	if bashErr != nil {
		s.log.Errorf("apprentice/scheduler: bash log tail: %v", bashErr)
	}
	if chatErr != nil {
		s.log.Errorf("apprentice/scheduler: chat log tail: %v", chatErr)
	}
	if added > 0 || inserted > 0 {
		s.log.Infof("apprentice/scheduler: index pass: %d assets, %d events", added, inserted)
	}
}

// indexAllContexts runs the upserter (spec C6) over every enabled context.
func (s *Scheduler) indexAllContexts(ctx context.Context) *IndexResult {
	result := &IndexResult{}
	contexts, err := s.registry.List(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("apprentice/scheduler: list contexts: %w", err))
		return result
	}

	upserter := ingest.NewUpserter(s.store, s.extractors)
	for _, c := range contexts {
		if !c.Enabled {
			continue
		}
		roots := []discover.Root{{Path: c.Path, SourcePath: c.Path}}
		for _, m := range c.Mounts {
			roots = append(roots, discover.Root{Path: m.Path, KeyPrefix: m.Mount + "/", SourcePath: m.Path})
		}

		files, err := discover.Walk(ctx, roots, c.IncludePatterns, c.ExcludePatterns)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/scheduler: walk context %s: %w", c.ID, err))
			continue
		}

		pass := upserter.UpsertFiles(ctx, c.ID, files)
		result.Added += pass.Added
		result.Updated += pass.Updated
		result.Skipped += pass.Skipped
		result.Errors = append(result.Errors, pass.Errors...)

		if err := s.registry.TouchIndexed(ctx, c.ID, dbstore.Now()); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/scheduler: touch indexed %s: %w", c.ID, err))
		}
	}
	return result
}

// runChatImportCycle runs one chat-import cycle (spec §4.14).
func (s *Scheduler) runChatImportCycle(ctx context.Context) {
	if s.importer == nil {
		return
	}
	result, err := s.importer.Run(ctx)
	if err != nil {
		s.log.Errorf("apprentice/scheduler: chat import: %v", err)
		return
	}
	if result.SessionsImported > 0 {
		s.log.Infof("apprentice/scheduler: chat import: %d sessions, %d events", result.SessionsImported, result.EventsAppended)
	}
}

// runEmbeddingPass runs one embedding batch for assets and events (spec
// §4.14: "generateAssetEmbeddings(100) -> generateEventEmbeddings(100)").
func (s *Scheduler) runEmbeddingPass(ctx context.Context) {
	if s.batcher == nil {
		return
	}
	assetResult, err := s.batcher.GenerateAssetEmbeddings(ctx, s.cfg.EmbeddingBatchSize)
	if err != nil {
		s.log.Errorf("apprentice/scheduler: asset embeddings: %v", err)
	}
	eventResult, err := s.batcher.GenerateEventEmbeddings(ctx, s.cfg.EmbeddingBatchSize)
	if err != nil {
		s.log.Errorf("apprentice/scheduler: event embeddings: %v", err)
	}
	embedded := 0
	if assetResult != nil {
		embedded += assetResult.Embedded
	}
	if eventResult != nil {
		embedded += eventResult.Embedded
	}
	if embedded > 0 {
		s.log.Infof("apprentice/scheduler: embedding pass: %d vectors", embedded)
	}
}

// runCheckpoint runs a PASSIVE WAL checkpoint (spec §4.14).
func (s *Scheduler) runCheckpoint(ctx context.Context) {
	pages, err := s.store.Checkpoint(ctx, dbstore.CheckpointPassive)
	if err != nil {
		s.log.Errorf("apprentice/scheduler: checkpoint: %v", err)
		return
	}
	if pages > 0 {
		s.log.Infof("apprentice/scheduler: checkpoint: %s written", humanize.Comma(int64(pages)))
	}
}
