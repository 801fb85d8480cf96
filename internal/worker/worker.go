package worker

import (
	"context"
	"log/slog"
	"time"

	"giftnews/internal/domain"
	"giftnews/internal/usecase"
)

// ArticleSaver определяет интерфейс сохранения статей в постоянное хранилище.
type ArticleSaver interface {
	SaveArticles(ctx context.Context, articles []domain.NormalizedArticle) (int, error)
}

// Worker реализует фонового воркера периодического обновления новостей.
// Раз в интервал запускает конвейер агрегации по всем источникам
// и передает результат хранилищу.
type Worker struct {
	pipeline *usecase.Pipeline
	saver    ArticleSaver
	limit    int
	interval time.Duration
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New создает нового воркера обновления новостей.
func New(pipeline *usecase.Pipeline, saver ArticleSaver, limit int, interval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		pipeline: pipeline,
		saver:    saver,
		limit:    limit,
		interval: interval,
		log:      log,
	}
}

// Start запускает воркер в отдельной горутине.
func (w *Worker) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go w.run()
}

// Stop останавливает воркер путем отмены контекста.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// run выполняет основной цикл работы воркера.
// Первый цикл обновления запускается сразу, далее по расписанию.
func (w *Worker) run() {
	w.log.Info("News refresh worker started",
		slog.String("component", "worker"),
		slog.String("interval", w.interval.String()),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.refresh()
	for {
		select {
		case <-ticker.C:
			w.refresh()
		case <-w.ctx.Done():
			w.log.Info("Worker stopping", slog.String("component", "worker"))
			return
		}
	}
}

// refresh выполняет один цикл обновления: прогон конвейера по всем
// источникам и сохранение результата. Синтетические посты-заглушки
// в хранилище не попадают.
func (w *Worker) refresh() {
	start := time.Now()
	log := w.log.With(slog.String("component", "worker"))
	log.Info("News refresh cycle started")

	opCtx, opCancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer opCancel()

	articles, err := w.pipeline.Run(opCtx, usecase.CategoryAll, w.limit)
	if err != nil {
		log.Error("News refresh failed", slog.Any("error", err))
		return
	}

	live := make([]domain.NormalizedArticle, 0, len(articles))
	for _, a := range articles {
		if !a.Placeholder {
			live = append(live, a)
		}
	}

	saved, err := w.saver.SaveArticles(opCtx, live)
	if err != nil {
		log.Error("Failed to save refreshed articles", slog.Any("error", err))
		return
	}
	log.Info("News refresh cycle completed",
		slog.Int("fetched", len(articles)),
		slog.Int("saved", saved),
		slog.Duration("duration", time.Since(start)),
	)
}

// GetInterval возвращает интервал обновления новостей.
func (w *Worker) GetInterval() time.Duration { return w.interval }
