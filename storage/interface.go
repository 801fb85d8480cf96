package storage

import (
	"context"

	"giftnews/internal/domain"
)

// Storage определяет интерфейс хранилища-потребителя результатов конвейера.
// Хранилище присваивает статьям синтетический идентификатор и счетчик
// просмотров; конвейер об этом ничего не знает.
type Storage interface {
	SaveArticles(ctx context.Context, articles []domain.NormalizedArticle) (int, error)
	GetNews(ctx context.Context, category string, limit int) ([]domain.NormalizedArticle, error)
	Close()
}
