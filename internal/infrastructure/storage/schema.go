package storage

import (
	"context"
	"fmt"

	"github.com/stugorf/hdc-digest/internal/domain"
)

const (
	keptTable    = "seen_items"
	droppedTable = "dropped_items"
)

// tableFor maps a history kind to its table.
func tableFor(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.KindKept:
		return keptTable, nil
	case domain.KindDropped:
		return droppedTable, nil
	default:
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
}

const tableDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
    id                 BIGSERIAL PRIMARY KEY,
    url                TEXT NOT NULL UNIQUE,
    title              TEXT NOT NULL DEFAULT '',
    published_date     TEXT NOT NULL DEFAULT '',
    summary            TEXT NOT NULL DEFAULT '',
    source_type        TEXT NOT NULL DEFAULT '',
    publisher          TEXT NOT NULL DEFAULT '',
    section_name       TEXT NOT NULL DEFAULT '',
    quality_verdict    TEXT,
    quality_confidence TEXT,
    quality_reason     TEXT,
    first_seen_date    DATE NOT NULL,
    last_seen_date     DATE NOT NULL,
    seen_count         INTEGER NOT NULL DEFAULT 1,
    CHECK (last_seen_date >= first_seen_date)
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_first_seen ON %[1]s (first_seen_date);
CREATE INDEX IF NOT EXISTS idx_%[1]s_section ON %[1]s (section_name);
CREATE INDEX IF NOT EXISTS idx_%[1]s_source_type ON %[1]s (source_type)`

// EnsureSchema creates both history tables and their indexes when missing.
// The UNIQUE constraint on url doubles as the url index.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	for _, table := range []string{keptTable, droppedTable} {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(tableDDL, table)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}
