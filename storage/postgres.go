package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftnews/internal/config"
	"giftnews/internal/domain"
)

type PostgresNewsDB struct {
	pool             *pgxpool.Pool
	log              *slog.Logger
	defaultNewsLimit int
}

func NewPostgresNewsDB(pool *pgxpool.Pool, appCfg config.AppConfig, log *slog.Logger) *PostgresNewsDB {
	log.Info("Initializing Postgres news storage")
	return &PostgresNewsDB{
		pool:             pool,
		log:              log,
		defaultNewsLimit: appCfg.DefaultNewsLimit,
	}
}

func (db *PostgresNewsDB) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

// SaveArticles сохраняет статьи пачкой. Повторные вставки того же поста
// распознаются по хэшу идентичности и молча пропускаются.
func (db *PostgresNewsDB) SaveArticles(ctx context.Context, articles []domain.NormalizedArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		db.log.Error(
			"Failed to begin transaction",
			slog.Any("error", err),
		)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				db.log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	batch := &pgx.Batch{}
	query := `
	INSERT INTO news (identity_hash, title, content, content_html, link, publish_date, category, source_name, media, reading_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (identity_hash) DO NOTHING;
	`
	for _, a := range articles {
		var mediaJSON []byte
		if a.Media != nil {
			if mediaJSON, err = json.Marshal(a.Media); err != nil {
				return 0, fmt.Errorf("failed to marshal media for %s: %w", a.ID, err)
			}
		}
		batch.Queue(
			query,
			a.ID,
			a.Title,
			a.Content,
			a.ContentHTML,
			a.Link,
			a.PublishDate,
			a.Category,
			a.SourceName,
			mediaJSON,
			a.ReadingTime,
		)
	}
	batchResult := tx.SendBatch(ctx, batch)
	if err = batchResult.Close(); err != nil {
		db.log.Error(
			"Failed to execute batch",
			slog.Any("error", err),
		)
		return 0, fmt.Errorf("failed to execute batch: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		db.log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(articles), nil
}

// GetNews возвращает сохраненные статьи, отсортированные по дате публикации.
// Пустая категория или "all" отключает фильтр по категории.
func (db *PostgresNewsDB) GetNews(ctx context.Context, category string, limit int) ([]domain.NormalizedArticle, error) {
	if limit <= 0 {
		limit = db.defaultNewsLimit
	}
	const op = "storage.postgres.GetNews"
	log := db.log.With(
		slog.String("op", op),
		slog.String("category", category),
		slog.Int("limit", limit),
	)
	query := `
	SELECT identity_hash, title, content, content_html, link, publish_date, category, source_name, media, reading_time
	FROM news
	WHERE ($1 = '' OR $1 = 'all' OR category = $1)
	ORDER BY publish_date DESC
	LIMIT $2;
	`
	rows, err := db.pool.Query(ctx, query, category, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	articles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.NormalizedArticle, error) {
		var a domain.NormalizedArticle
		var mediaJSON []byte
		err := row.Scan(
			&a.ID,
			&a.Title,
			&a.Content,
			&a.ContentHTML,
			&a.Link,
			&a.PublishDate,
			&a.Category,
			&a.SourceName,
			&mediaJSON,
			&a.ReadingTime,
		)
		if err != nil {
			return a, err
		}
		if len(mediaJSON) > 0 {
			var media domain.MediaReference
			if err := json.Unmarshal(mediaJSON, &media); err == nil {
				a.Media = &media
			}
		}
		return a, nil
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Info("Successfully retrieved news items", slog.Int("count", len(articles)))
	return articles, nil
}
