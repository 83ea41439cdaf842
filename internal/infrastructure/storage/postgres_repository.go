package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
	"github.com/stugorf/hdc-digest/internal/ports"
)

// ErrNotFound is returned when no stored item has the requested url.
var ErrNotFound = errors.New("item not found")

// ErrInvalidOrder is returned for an order-by clause outside the whitelist.
var ErrInvalidOrder = errors.New("invalid order by")

const defaultOrder = "first_seen_date DESC"

var orderColumns = map[string]struct{}{
	"first_seen_date": {},
	"last_seen_date":  {},
	"seen_count":      {},
	"published_date":  {},
	"title":           {},
}

var itemColumns = []string{
	"url", "title", "published_date", "summary", "source_type", "publisher", "section_name",
	"quality_verdict", "quality_confidence", "quality_reason",
	"first_seen_date", "last_seen_date", "seen_count",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists the kept and dropped histories into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.SeenStore  = (*PostgresRepository)(nil)
	_ ports.ItemReader = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects to Postgres with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// LoadSeen returns every canonical url stored for kind.
func (r *PostgresRepository) LoadSeen(ctx context.Context, kind domain.ItemKind) (map[string]struct{}, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("url").From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen %s: %w", kind, err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Save upserts every kept and dropped item of the digest inside one
// transaction. Any failure rolls the whole batch back.
// Repeats of a canonical url within the digest are written once.
func (r *PostgresRepository) Save(ctx context.Context, digest domain.Digest) (err error) {
	runDate, err := time.Parse(domain.DateLayout, digest.Date)
	if err != nil {
		return fmt.Errorf("run date %q: %w", digest.Date, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "LOCK TABLE "+keptTable+", "+droppedTable+" IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("lock tables: %w", err)
	}

	for _, row := range batchRows(digest) {
		table := keptTable
		if row.kind == domain.KindDropped {
			table = droppedTable
		}
		if err = upsert(ctx, tx, table, row.section, row.item, runDate); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func upsert(ctx context.Context, tx *sql.Tx, table, section string, item domain.Item, runDate time.Time) error {
	verdict, confidence, reason := flattenQuality(item.Quality)

	query, args, err := psql.Insert(table).
		Columns(itemColumns...).
		Values(
			normalize.CanonicalURL(item.URL), item.Title, item.PublishedDate, item.Summary,
			item.SourceType, item.Publisher, section,
			verdict, confidence, reason,
			runDate, runDate, 1,
		).
		Suffix(fmt.Sprintf(`ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    published_date = EXCLUDED.published_date,
    summary = EXCLUDED.summary,
    source_type = EXCLUDED.source_type,
    publisher = EXCLUDED.publisher,
    section_name = EXCLUDED.section_name,
    quality_verdict = EXCLUDED.quality_verdict,
    quality_confidence = EXCLUDED.quality_confidence,
    quality_reason = EXCLUDED.quality_reason,
    last_seen_date = GREATEST(%[1]s.last_seen_date, EXCLUDED.last_seen_date),
    seen_count = %[1]s.seen_count + 1`, table)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s %s: %w", table, item.URL, err)
	}
	return nil
}

// flattenQuality splits the verdict into nullable columns; absent sub-fields become NULL.
func flattenQuality(q *domain.Quality) (verdict, confidence, reason *string) {
	if q == nil {
		return nil, nil, nil
	}
	return nullable(string(q.Verdict)), nullable(q.Confidence), nullable(q.Reason)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List returns stored items matching the filter, ordered by a whitelisted column.
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.StoredItem, error) {
	table, err := tableFor(filter.Kind)
	if err != nil {
		return nil, err
	}
	order, err := orderClause(filter.OrderBy)
	if err != nil {
		return nil, err
	}

	builder := psql.Select(itemColumns...).From(table).OrderBy(order)
	if filter.SectionName != "" {
		builder = builder.Where(sq.Eq{"section_name": filter.SectionName})
	}
	if filter.SourceType != "" {
		builder = builder.Where(sq.Eq{"source_type": filter.SourceType})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	return r.queryItems(ctx, builder)
}

// GetByURL fetches a single item by its canonical url.
func (r *PostgresRepository) GetByURL(ctx context.Context, kind domain.ItemKind, url string) (domain.StoredItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return domain.StoredItem{}, err
	}

	items, err := r.queryItems(ctx, psql.Select(itemColumns...).From(table).
		Where(sq.Eq{"url": normalize.CanonicalURL(url)}).Limit(1))
	if err != nil {
		return domain.StoredItem{}, err
	}
	if len(items) == 0 {
		return domain.StoredItem{}, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	return items[0], nil
}

// FirstSeenBetween returns items first seen within [from, to], newest first.
// Bounds are passed as calendar dates so the session timezone never shifts them.
func (r *PostgresRepository) FirstSeenBetween(ctx context.Context, kind domain.ItemKind, from, to time.Time) ([]domain.StoredItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	return r.queryItems(ctx, psql.Select(itemColumns...).From(table).
		Where(sq.GtOrEq{"first_seen_date": from.Format(domain.DateLayout)}).
		Where(sq.LtOrEq{"first_seen_date": to.Format(domain.DateLayout)}).
		OrderBy(defaultOrder))
}

// Stats aggregates counts by section and source type plus the first-seen range.
func (r *PostgresRepository) Stats(ctx context.Context, kind domain.ItemKind) (domain.Stats, error) {
	table, err := tableFor(kind)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{BySection: map[string]int{}, BySourceType: map[string]int{}}

	query, args, err := psql.Select("COUNT(*)", "MIN(first_seen_date)", "MAX(first_seen_date)").From(table).ToSql()
	if err != nil {
		return stats, fmt.Errorf("build totals: %w", err)
	}
	var earliest, latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.TotalItems, &earliest, &latest); err != nil {
		return stats, fmt.Errorf("query totals: %w", err)
	}
	if earliest.Valid && latest.Valid {
		stats.DateRange = &domain.DateRange{Earliest: earliest.Time, Latest: latest.Time}
	}

	if err := r.countBy(ctx, table, "section_name", stats.BySection); err != nil {
		return stats, err
	}
	if err := r.countBy(ctx, table, "source_type", stats.BySourceType); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *PostgresRepository) countBy(ctx context.Context, table, column string, into map[string]int) error {
	query, args, err := psql.Select(column, "COUNT(*)").From(table).GroupBy(column).ToSql()
	if err != nil {
		return fmt.Errorf("build %s counts: %w", column, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query %s counts: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

func (r *PostgresRepository) queryItems(ctx context.Context, builder sq.SelectBuilder) ([]domain.StoredItem, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.StoredItem
	for rows.Next() {
		var (
			item                        domain.StoredItem
			verdict, confidence, reason sql.NullString
		)
		if err := rows.Scan(
			&item.URL, &item.Title, &item.PublishedDate, &item.Summary, &item.SourceType, &item.Publisher, &item.SectionName,
			&verdict, &confidence, &reason,
			&item.FirstSeenDate, &item.LastSeenDate, &item.SeenCount,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.QualityVerdict = fromNull(verdict)
		item.QualityConfidence = fromNull(confidence)
		item.QualityReason = fromNull(reason)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// orderClause validates "column [asc|desc]" against the whitelist.
func orderClause(orderBy string) (string, error) {
	fields := strings.Fields(strings.ToLower(orderBy))
	switch len(fields) {
	case 0:
		return defaultOrder, nil
	case 1, 2:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, orderBy)
	}

	if _, ok := orderColumns[fields[0]]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, orderBy)
	}
	direction := "DESC"
	if len(fields) == 2 {
		switch fields[1] {
		case "asc":
			direction = "ASC"
		case "desc":
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidOrder, orderBy)
		}
	}
	return fields[0] + " " + direction, nil
}
