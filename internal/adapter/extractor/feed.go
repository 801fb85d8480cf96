package extractor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"giftnews/internal/config"
	"giftnews/internal/domain"
)

const (
	// maxFeedPosts - максимум записей, извлекаемых из одной ленты.
	maxFeedPosts = 10
	// descriptionLimit - предельная длина очищенного описания в рунах.
	descriptionLimit = 200
)

// FeedExtractor извлекает посты из RSS/Atom-лент.
// Пустая лента и сбой загрузки не эскалируются как ошибки конвейера:
// одна упавшая лента не должна блокировать остальные.
type FeedExtractor struct {
	fetcher Fetcher
	parser  *gofeed.Parser
	log     *slog.Logger
	now     func() time.Time
}

// NewFeedExtractor создает новый экстрактор RSS-лент.
func NewFeedExtractor(fetcher Fetcher, log *slog.Logger) *FeedExtractor {
	return &FeedExtractor{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		log:     log,
		now:     time.Now,
	}
}

// Extract загружает и разбирает ленту, возвращая до maxFeedPosts постов.
func (e *FeedExtractor) Extract(ctx context.Context, src config.FeedSource) domain.FetchOutcome {
	log := e.log.With(
		slog.String("component", "feed-extractor"),
		slog.String("source", src.Name),
		slog.String("url", src.URL),
	)
	reader, err := e.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		log.Warn("Feed fetch failed", slog.Any("error", err))
		return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginFailed, Err: err}
	}
	defer reader.Close()

	feed, err := e.parser.Parse(reader)
	if err != nil {
		log.Warn("Feed parsing failed", slog.Any("error", err))
		return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginFailed, Err: err}
	}
	if len(feed.Items) == 0 {
		log.Warn("No entries found in feed")
		return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginEmpty}
	}

	items := feed.Items
	if len(items) > maxFeedPosts {
		items = items[:maxFeedPosts]
	}
	posts := make([]domain.RawPost, 0, len(items))
	for _, item := range items {
		posts = append(posts, e.entryToPost(item, src))
	}
	log.Info("Feed entries extracted", slog.Int("count", len(posts)))
	return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginLive, Posts: posts}
}

// entryToPost преобразует запись ленты в сырой пост.
func (e *FeedExtractor) entryToPost(item *gofeed.Item, src config.FeedSource) domain.RawPost {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Без заголовка"
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}
	clean := truncateRunes(stripHTML(description), descriptionLimit)

	published := e.now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return domain.RawPost{
		IdentityHash: identityHash(item.Link, title),
		Kind:         domain.SourceFeed,
		Title:        title,
		BodyText:     clean,
		BodyHTML:     clean,
		SourceName:   src.Name,
		CategoryHint: src.Category,
		PublishedAt:  published,
		Link:         item.Link,
		Media:        entryMedia(item),
	}
}

// entryMedia находит медиа записи: первое вложение с типом изображения
// или видео, иначе иллюстрация самой записи, если лента ее отдает.
func entryMedia(item *gofeed.Item) *domain.MediaReference {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		switch {
		case strings.HasPrefix(enc.Type, "image/"):
			return &domain.MediaReference{Kind: domain.MediaPhoto, URL: enc.URL, Thumbnail: enc.URL}
		case strings.HasPrefix(enc.Type, "video/"):
			return &domain.MediaReference{Kind: domain.MediaVideo, URL: enc.URL}
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return &domain.MediaReference{Kind: domain.MediaPhoto, URL: item.Image.URL, Thumbnail: item.Image.URL}
	}
	return nil
}
