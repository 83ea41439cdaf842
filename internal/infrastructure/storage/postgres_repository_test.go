package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stugorf/hdc-digest/internal/domain"
)

func setupTestDB(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresRepository(db), mock
}

func sampleDigest() domain.Digest {
	return domain.Digest{
		RunID: "run-1",
		Date:  "2026-01-05",
		Sections: []domain.Section{
			{
				Name: "Papers",
				Items: []domain.Item{{
					Title: "A", URL: "https://x.com/a/", SourceType: "paper",
					Quality: &domain.Quality{Verdict: domain.VerdictKeep, Confidence: "high"},
				}},
				Dropped: []domain.Item{{Title: "B", URL: "https://x.com/b"}},
			},
		},
	}
}

func TestPostgresRepository_Save(t *testing.T) {
	repo, mock := setupTestDB(t)
	runDate := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE seen_items, dropped_items").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seen_items")).
		WithArgs("https://x.com/a", "A", "", "", "paper", "", "Papers",
			"KEEP", "high", nil, runDate, runDate, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dropped_items")).
		WithArgs("https://x.com/b", "B", "", "", "", "", "Papers",
			nil, nil, nil, runDate, runDate, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), sampleDigest()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUpsertAccumulates(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (url) DO UPDATE SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("seen_count = dropped_items.seen_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), sampleDigest()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveRollsBackOnError(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO seen_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO dropped_items").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveRejectsBadDate(t *testing.T) {
	repo, mock := setupTestDB(t)

	d := sampleDigest()
	d.Date = "yesterday"
	require.Error(t, repo.Save(context.Background(), d))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadSeen(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT url FROM dropped_items")).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://x.com/a").AddRow("https://x.com/b"))

	seen, err := repo.LoadSeen(context.Background(), domain.KindDropped)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Contains(t, seen, "https://x.com/a")

	_, err = repo.LoadSeen(context.Background(), domain.ItemKind("other"))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func itemRows() *sqlmock.Rows {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(itemColumns).
		AddRow("https://x.com/a", "A", "2026-01-01", "s", "paper", "P", "Papers", "KEEP", nil, nil, day, day, 2)
}

func TestPostgresRepository_List(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM seen_items WHERE section_name = $1 AND source_type = $2 ORDER BY seen_count ASC LIMIT 10 OFFSET 5")).
		WithArgs("Papers", "paper").
		WillReturnRows(itemRows())

	items, err := repo.List(context.Background(), domain.ListFilter{
		Kind: domain.KindKept, SectionName: "Papers", SourceType: "paper",
		Limit: 10, Offset: 5, OrderBy: "seen_count asc",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].SeenCount)
	require.NotNil(t, items[0].QualityVerdict)
	assert.Equal(t, "KEEP", *items[0].QualityVerdict)
	assert.Nil(t, items[0].QualityConfidence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListRejectsUnknownOrder(t *testing.T) {
	repo, mock := setupTestDB(t)

	_, err := repo.List(context.Background(), domain.ListFilter{Kind: domain.KindKept, OrderBy: "url; DROP TABLE seen_items"})
	require.ErrorIs(t, err, ErrInvalidOrder)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByURL(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM seen_items WHERE url = $1")).
		WithArgs("https://x.com/a").
		WillReturnRows(itemRows())
	mock.ExpectQuery(regexp.QuoteMeta("FROM seen_items WHERE url = $1")).
		WithArgs("https://x.com/missing").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	item, err := repo.GetByURL(context.Background(), domain.KindKept, "https://x.com/a/")
	require.NoError(t, err)
	assert.Equal(t, "A", item.Title)

	_, err = repo.GetByURL(context.Background(), domain.KindKept, "https://x.com/missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FirstSeenBetween(t *testing.T) {
	repo, mock := setupTestDB(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE first_seen_date >= $1 AND first_seen_date <= $2 ORDER BY first_seen_date DESC")).
		WithArgs("2026-01-01", "2026-01-31").
		WillReturnRows(itemRows())

	items, err := repo.FirstSeenBetween(context.Background(), domain.KindKept, from, to)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FirstSeenBetweenUsesCalendarDates(t *testing.T) {
	repo, mock := setupTestDB(t)
	zone := time.FixedZone("UTC-8", -8*60*60)
	from := time.Date(2026, 1, 1, 23, 30, 0, 0, zone)
	to := time.Date(2026, 1, 31, 23, 30, 0, 0, zone)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE first_seen_date >= $1 AND first_seen_date <= $2")).
		WithArgs("2026-01-01", "2026-01-31").
		WillReturnRows(itemRows())

	_, err := repo.FirstSeenBetween(context.Background(), domain.KindKept, from, to)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveWritesRepeatedURLOnce(t *testing.T) {
	repo, mock := setupTestDB(t)
	runDate := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	digest := domain.Digest{
		Date: "2026-01-05",
		Sections: []domain.Section{
			{
				Name:    "Papers",
				Items:   []domain.Item{{Title: "A", URL: "https://x.com/a"}, {Title: "A again", URL: "https://x.com/a/"}},
				Dropped: []domain.Item{{Title: "A dropped", URL: "https://x.com/a"}},
			},
			{Name: "News", Items: []domain.Item{{Title: "A news", URL: "https://x.com/a"}}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seen_items")).
		WithArgs("https://x.com/a", "A", "", "", "", "", "Papers",
			nil, nil, nil, runDate, runDate, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dropped_items")).
		WithArgs("https://x.com/a", "A dropped", "", "", "", "", "Papers",
			nil, nil, nil, runDate, runDate, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), digest))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Stats(t *testing.T) {
	repo, mock := setupTestDB(t)
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), MIN(first_seen_date), MAX(first_seen_date) FROM seen_items")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(3, early, late))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT section_name, COUNT(*) FROM seen_items GROUP BY section_name")).
		WillReturnRows(sqlmock.NewRows([]string{"section_name", "count"}).AddRow("Papers", 2).AddRow("News", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_type, COUNT(*) FROM seen_items GROUP BY source_type")).
		WillReturnRows(sqlmock.NewRows([]string{"source_type", "count"}).AddRow("paper", 3))

	stats, err := repo.Stats(context.Background(), domain.KindKept)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, map[string]int{"Papers": 2, "News": 1}, stats.BySection)
	assert.Equal(t, map[string]int{"paper": 3}, stats.BySourceType)
	require.NotNil(t, stats.DateRange)
	assert.Equal(t, late, stats.DateRange.Latest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_StatsEmpty(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(0, nil, nil))
	mock.ExpectQuery("GROUP BY section_name").WillReturnRows(sqlmock.NewRows([]string{"section_name", "count"}))
	mock.ExpectQuery("GROUP BY source_type").WillReturnRows(sqlmock.NewRows([]string{"source_type", "count"}))

	stats, err := repo.Stats(context.Background(), domain.KindDropped)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Nil(t, stats.DateRange)
	assert.Empty(t, stats.BySection)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderClause(t *testing.T) {
	cases := map[string]string{
		"":                     "first_seen_date DESC",
		"title":                "title DESC",
		"Published_Date asc":   "published_date ASC",
		"last_seen_date  desc": "last_seen_date DESC",
	}
	for in, want := range cases {
		got, err := orderClause(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"url", "title sideways", "title asc extra"} {
		_, err := orderClause(bad)
		assert.ErrorIs(t, err, ErrInvalidOrder, bad)
	}
}
