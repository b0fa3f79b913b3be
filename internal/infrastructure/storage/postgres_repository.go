package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"newspulse/internal/domain"
	"newspulse/internal/ports"
)

// PostgresRepository persists sources and enriched news items into Postgres.
// Embeddings go into a pgvector column whose dimension is fixed by the schema.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.NewsRepository = (*PostgresRepository)(nil)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SourceExists reports whether a source with the given name is registered.
func (r *PostgresRepository) SourceExists(ctx context.Context, name string) (bool, error) {
	query, args, err := r.sb.Select("1").
		From("sources").
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return true, nil
}

// CreateOrUpdateSource upserts a source by name, refreshing url and type.
func (r *PostgresRepository) CreateOrUpdateSource(ctx context.Context, name, url, sourceType string) (domain.Source, error) {
	if sourceType == "" {
		sourceType = "rss"
	}

	query, args, err := r.sb.Insert("sources").
		Columns("name", "url", "source_type", "is_active").
		Values(name, url, sourceType, true).
		Suffix(`ON CONFLICT (name) DO UPDATE
                SET url = EXCLUDED.url,
                    source_type = EXCLUDED.source_type
                RETURNING id, name, url, source_type, is_active, created_at, last_fetched, fetch_count`).
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build upsert: %w", err)
	}

	source, err := scanSource(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Source{}, fmt.Errorf("upsert source %s: %w", name, err)
	}
	return source, nil
}

// ActiveSources loads every source with is_active set.
func (r *PostgresRepository) ActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := r.sb.Select("id", "name", "url", "source_type", "is_active", "created_at", "last_fetched", "fetch_count").
		From("sources").
		Where(sq.Eq{"is_active": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// ItemExists checks for a stored record with the exact canonical URL.
func (r *PostgresRepository) ItemExists(ctx context.Context, url string) (bool, error) {
	query, args, err := r.sb.Select("1").
		From("news_items").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query item: %w", err)
	}
	return true, nil
}

// CommitItems stores the batch in a single transaction and returns the number
// of rows actually inserted. A URL collision inside the batch window is
// skipped rather than failing the whole pass.
func (r *PostgresRepository) CommitItems(ctx context.Context, sourceID int64, items []domain.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	stored := 0
	for _, item := range items {
		query, args, err := r.sb.Insert("news_items").
			Columns("source_id", "title", "url", "published_at", "summary",
				"impact_score", "sentiment", "category_cluster", "embedding").
			Values(sourceID, item.Title, item.URL, item.PublishedAt, item.Summary,
				item.ImpactScore, string(item.Sentiment), item.Category,
				pgvector.NewVector(item.Embedding)).
			Suffix("ON CONFLICT (url) DO NOTHING").
			ToSql()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("build insert: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert item %s: %w", item.URL, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		stored += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return stored, nil
}

// UpdateSourceStats stamps last_fetched and bumps fetch_count after a
// successful pass.
func (r *PostgresRepository) UpdateSourceStats(ctx context.Context, sourceID int64) error {
	query, args, err := r.sb.Update("sources").
		Set("last_fetched", sq.Expr("NOW()")).
		Set("fetch_count", sq.Expr("fetch_count + 1")).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source stats: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		source      domain.Source
		lastFetched sql.NullTime
	)
	err := row.Scan(&source.ID, &source.Name, &source.URL, &source.Type,
		&source.IsActive, &source.CreatedAt, &lastFetched, &source.FetchCount)
	if err != nil {
		return domain.Source{}, err
	}
	if lastFetched.Valid {
		source.LastFetched = &lastFetched.Time
	}
	return source, nil
}
