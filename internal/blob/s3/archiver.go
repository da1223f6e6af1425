package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/probmarket/ledger/internal/domain"
)

// BlobWriter is the narrow upload interface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver periodically drains the audit log into JSONL objects for
// off-ledger reconciliation: settled fills and resolved markets are the
// records the token collaborator replays. Records are never deleted from the
// primary store here; the archive is an additional copy.
type Archiver struct {
	writer   BlobWriter
	audit    domain.AuditStore
	interval time.Duration
	prefix   string
	logger   *slog.Logger

	lastCutoff time.Time
}

// NewArchiver creates an Archiver that uploads audit batches under the given
// key prefix at the given interval.
func NewArchiver(writer BlobWriter, audit domain.AuditStore, prefix string, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		writer:   writer,
		audit:    audit,
		interval: interval,
		prefix:   prefix,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run archives on a ticker until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ArchiveOnce uploads all audit entries recorded since the previous pass as
// one JSONL object. An empty window uploads nothing.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	now := time.Now().UTC()
	opts := domain.ListOpts{Limit: 10000}
	if !a.lastCutoff.IsZero() {
		since := a.lastCutoff
		opts.Since = &since
	}

	entries, err := a.audit.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("s3blob: list audit entries: %w", err)
	}
	if len(entries) == 0 {
		a.lastCutoff = now
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("s3blob: encode audit entry %d: %w", e.ID, err)
		}
	}

	key := fmt.Sprintf("%s/%s.jsonl", a.prefix, now.Format("2006/01/02/150405"))
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "archived audit batch",
		slog.String("key", key),
		slog.Int("entries", len(entries)),
	)
	a.lastCutoff = now
	return nil
}
