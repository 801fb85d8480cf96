package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"giftnews/internal/config"
	"giftnews/internal/domain"
)

// CategoryAll - значение категории, при котором опрашиваются все источники.
const CategoryAll = "all"

// ErrNoData возвращается, когда все источники отказали и по ключу запроса
// нет даже устаревшей закэшированной страницы. Это единственный случай,
// когда вызывающая сторона видит ошибку вместо списка статей.
var ErrNoData = errors.New("no articles available")

// ChannelExtractor определяет интерфейс извлечения постов со страницы канала.
type ChannelExtractor interface {
	Extract(ctx context.Context, src config.ChannelSource) domain.FetchOutcome
}

// FeedExtractor определяет интерфейс извлечения постов из RSS-ленты.
type FeedExtractor interface {
	Extract(ctx context.Context, src config.FeedSource) domain.FetchOutcome
}

// Pipeline реализует конвейер агрегации: параллельный опрос источников,
// категоризацию, дедупликацию, сортировку, усечение и кэширование.
type Pipeline struct {
	channels    []config.ChannelSource
	feeds       []config.FeedSource
	channelExt  ChannelExtractor
	feedExt     FeedExtractor
	categorizer *Categorizer
	cache       *ResultCache
	log         *slog.Logger

	defaultLimit int
	maxLimit     int
}

// NewPipeline создает конвейер агрегации. Все зависимости инъецируются:
// источники и лимиты приходят из конфигурации, кэш создается один раз
// при старте приложения.
func NewPipeline(
	appCfg config.AppConfig,
	channelExt ChannelExtractor,
	feedExt FeedExtractor,
	categorizer *Categorizer,
	cache *ResultCache,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		channels:     appCfg.Channels,
		feeds:        appCfg.Feeds,
		channelExt:   channelExt,
		feedExt:      feedExt,
		categorizer:  categorizer,
		cache:        cache,
		log:          log,
		defaultLimit: appCfg.DefaultNewsLimit,
		maxLimit:     appCfg.MaxNewsLimit,
	}
}

// Run выполняет один проход конвейера для пары (категория, лимит)
// и возвращает упорядоченный по убыванию даты список статей длиной
// не более лимита. Сбой отдельного источника изолируется и никогда
// не прерывает остальные; ошибка возвращается только если данных нет
// совсем и нечего отдать даже из устаревшего кэша.
func (p *Pipeline) Run(ctx context.Context, category string, limit int) ([]domain.NormalizedArticle, error) {
	start := time.Now()
	category, limit = p.clampRequest(category, limit)
	log := p.log.With(
		slog.String("component", "pipeline"),
		slog.String("category", category),
		slog.Int("limit", limit),
	)

	key := CacheKey{Category: category, Limit: limit}
	if articles, ok := p.cache.Get(key); ok {
		log.Info("Returning cached result", slog.Int("count", len(articles)))
		return articles, nil
	}

	channels, feeds := p.selectSources(category)
	log.Info("Pipeline run started",
		slog.Int("channel_sources", len(channels)),
		slog.Int("feed_sources", len(feeds)),
	)

	outcomes := p.fetchAll(ctx, channels, feeds)
	var posts []domain.RawPost
	failed := 0
	for _, outcome := range outcomes {
		if outcome.Origin == domain.OriginFailed {
			failed++
			continue
		}
		// Пустой исход - валидный ответ источника, не сбой.
		posts = append(posts, outcome.Posts...)
	}

	if len(posts) == 0 && failed > 0 && failed == len(outcomes) {
		if stale, ok := p.cache.GetStale(key); ok {
			log.Warn("All sources failed, returning stale cached result",
				slog.Int("failed_sources", failed),
				slog.Int("count", len(stale)),
			)
			return stale, nil
		}
		log.Error("Pipeline run produced no data", slog.Int("failed_sources", failed))
		return nil, fmt.Errorf("run for category %q: %w", category, ErrNoData)
	}

	posts = Deduplicate(posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	articles := make([]domain.NormalizedArticle, 0, len(posts))
	for _, post := range posts {
		articles = append(articles, domain.Normalize(post, p.resolveCategory(post)))
	}

	p.cache.Put(key, articles)
	log.Info("Pipeline run completed",
		slog.Int("count", len(articles)),
		slog.Int("failed_sources", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return articles, nil
}

// clampRequest нормализует параметры запроса: пустая категория означает
// все источники, лимит приводится в пределы [1, maxLimit].
func (p *Pipeline) clampRequest(category string, limit int) (string, int) {
	if category == "" {
		category = CategoryAll
	}
	if limit <= 0 {
		limit = p.defaultLimit
	}
	if limit > p.maxLimit {
		limit = p.maxLimit
	}
	return category, limit
}

// selectSources возвращает источники, соответствующие запрошенной категории.
func (p *Pipeline) selectSources(category string) ([]config.ChannelSource, []config.FeedSource) {
	if category == CategoryAll {
		return p.channels, p.feeds
	}
	var channels []config.ChannelSource
	for _, ch := range p.channels {
		if ch.Category == category {
			channels = append(channels, ch)
		}
	}
	var feeds []config.FeedSource
	for _, f := range p.feeds {
		if f.Category == category {
			feeds = append(feeds, f)
		}
	}
	return channels, feeds
}

// fetchAll опрашивает все выбранные источники параллельно и ждет,
// пока каждый завершится успехом, пустым результатом или изолированным
// сбоем. Ни один результат не блокирует остальные.
func (p *Pipeline) fetchAll(ctx context.Context, channels []config.ChannelSource, feeds []config.FeedSource) []domain.FetchOutcome {
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]domain.FetchOutcome, 0, len(channels)+len(feeds))

	collect := func(outcome domain.FetchOutcome) {
		mu.Lock()
		outcomes = append(outcomes, outcome)
		mu.Unlock()
	}

	for _, ch := range channels {
		wg.Add(1)
		go func(src config.ChannelSource) {
			defer wg.Done()
			collect(p.channelExt.Extract(ctx, src))
		}(ch)
	}
	for _, f := range feeds {
		wg.Add(1)
		go func(src config.FeedSource) {
			defer wg.Done()
			collect(p.feedExt.Extract(ctx, src))
		}(f)
	}
	wg.Wait()
	return outcomes
}

// resolveCategory выбирает категорию поста: явная подсказка источника
// имеет приоритет, категоризатор заполняет пробелы.
func (p *Pipeline) resolveCategory(post domain.RawPost) string {
	if post.CategoryHint != "" {
		return post.CategoryHint
	}
	return p.categorizer.Categorize(post.Title, post.BodyText)
}
