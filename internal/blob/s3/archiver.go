package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// FillArchiveStore provides read access to fills for archival purposes.
type FillArchiveStore interface {
	ListByMarket(ctx context.Context, marketSlug string) ([]domain.Fill, error)
}

// SettlementArchiveStore provides read access to settlement records for
// archival purposes.
type SettlementArchiveStore interface {
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.SettlementRecord, error)
}

// ArchiveImpl implements cold storage of settled markets as JSONL uploads to
// S3: ArchiveSettlements uploads the settlements before a cutoff, and
// ArchiveMarketFills uploads one market's fills. Neither deletes anything
// from the primary store.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	settlements SettlementArchiveStore
	fills       FillArchiveStore
	audit       domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, settlements SettlementArchiveStore, fills FillArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{writer: writer, settlements: settlements, fills: fills, audit: audit}
}

// ArchiveSettlements queries settlements before the cutoff, serializes them
// to JSONL, and uploads the file to S3 at archive/settlements/YYYY-MM.jsonl.
func (a *ArchiveImpl) ArchiveSettlements(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.settlements.ListRecent(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements marshal: %w", err)
	}

	path := archivePath("settlements", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements upload: %w", err)
	}

	count := int64(len(recs))
	if err := a.audit.Log(ctx, "archive.settlements", map[string]any{
		"path": path, "count": count, "before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive settlements audit log: %w", err)
	}
	return count, nil
}

// ArchiveMarketFills fetches all fills for a single settled market and
// uploads them to S3 at archive/fills/{marketSlug}.jsonl. Called once per
// market right after settlement rather than on a time cutoff, since fills
// are keyed by market rather than by a global timeline.
func (a *ArchiveImpl) ArchiveMarketFills(ctx context.Context, marketSlug string) (int64, error) {
	fills, err := a.fills.ListByMarket(ctx, marketSlug)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive fills query %s: %w", marketSlug, err)
	}
	if len(fills) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(fills)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive fills marshal %s: %w", marketSlug, err)
	}

	path := fmt.Sprintf("archive/fills/%s.jsonl", marketSlug)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive fills upload %s: %w", marketSlug, err)
	}

	count := int64(len(fills))
	if err := a.audit.Log(ctx, "archive.fills", map[string]any{
		"path": path, "count": count, "market_slug": marketSlug,
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive fills audit log %s: %w", marketSlug, err)
	}
	return count, nil
}

// archivePath builds the S3 key for a time-partitioned archive file.
//
//	archive/settlements/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
