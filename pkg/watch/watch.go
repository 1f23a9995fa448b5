// Package watch follows a directory for new or changed text files and feeds
// them into the ingestion pipeline. A persisted ledger keeps restarts from
// re-ingesting files that have not changed.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/ingest"
)

// Ingestor runs one document through the pipeline. Satisfied by
// *ingest.Assembler.
type Ingestor interface {
	ProcessDocument(ctx context.Context, doc *graph.Document) (*ingest.Result, error)
}

// Config holds watcher settings.
type Config struct {
	// Dir is the directory to watch. Required.
	Dir string

	// Ingestor processes discovered files. Required.
	Ingestor Ingestor

	// ContainerTag is stamped on every ingested document.
	ContainerTag string

	// LedgerDir overrides the .engram/ directory holding the ledger.
	LedgerDir string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Watcher ingests files from a directory as they appear or change.
type Watcher struct {
	dir          string
	ingestor     Ingestor
	containerTag string
	ledgerDir    string
	ddm          *dotdir.Manager
	ledger       *dotdir.Ledger
	logger       *slog.Logger
}

// New builds a Watcher and loads its ledger.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("a watch directory is required")
	}
	if cfg.Ingestor == nil {
		return nil, fmt.Errorf("an ingestor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}

	ddm := dotdir.NewManager()
	ledger, err := ddm.LoadLedger(cfg.LedgerDir)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:          dir,
		ingestor:     cfg.Ingestor,
		containerTag: cfg.ContainerTag,
		ledgerDir:    cfg.LedgerDir,
		ddm:          ddm,
		ledger:       ledger,
		logger:       cfg.Logger,
	}, nil
}

// Run scans the directory once, then blocks processing filesystem events
// until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.scan(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.consider(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// scan ingests any files already in the directory that the ledger has not
// seen at their current modification time.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.consider(ctx, filepath.Join(w.dir, entry.Name()))
	}

	return nil
}

// consider ingests one file if it is watchable and its ledger entry is
// stale. Errors are logged; a bad file never stops the watch loop.
func (w *Watcher) consider(ctx context.Context, path string) {
	if !watchable(path) {
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	if w.ledger.Seen(path, info.ModTime()) {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("reading watched file", "path", path, "error", err)
		return
	}

	doc := &graph.Document{
		Title:        filepath.Base(path),
		SourceURL:    "file://" + path,
		ContentType:  contentTypeFor(path),
		RawContent:   string(raw),
		ContainerTag: w.containerTag,
	}

	result, err := w.ingestor.ProcessDocument(ctx, doc)
	if err != nil {
		w.logger.Error("ingesting watched file", "path", path, "error", err)
		return
	}

	w.ledger.Record(path, result.DocumentID.String(), info.ModTime())
	if err := w.ddm.SaveLedger(w.ledger, w.ledgerDir); err != nil {
		w.logger.Warn("saving ingest ledger", "error", err)
	}

	w.logger.Info("watched file ingested",
		"path", path,
		"document_id", result.DocumentID,
		"chunks", result.ChunkCount,
	)
}

// watchable filters to plain text formats and skips hidden and temp files.
func watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".chat":
		return true
	}
	return false
}

// contentTypeFor maps a file extension to the chunking strategy hint.
func contentTypeFor(path string) graph.ContentType {
	if strings.EqualFold(filepath.Ext(path), ".chat") {
		return graph.ContentTypeConversation
	}
	return graph.ContentTypeText
}
