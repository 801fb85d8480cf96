package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftnews/internal/config"
	"giftnews/internal/domain"
)

// fakeChannelExtractor отдает заранее заготовленные исходы по имени канала.
type fakeChannelExtractor struct {
	outcomes map[string]domain.FetchOutcome
	calls    atomic.Int32
}

func (f *fakeChannelExtractor) Extract(_ context.Context, src config.ChannelSource) domain.FetchOutcome {
	f.calls.Add(1)
	outcome, ok := f.outcomes[src.Username]
	if !ok {
		return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginEmpty}
	}
	return outcome
}

type fakeFeedExtractor struct {
	outcomes map[string]domain.FetchOutcome
	calls    atomic.Int32
}

func (f *fakeFeedExtractor) Extract(_ context.Context, src config.FeedSource) domain.FetchOutcome {
	f.calls.Add(1)
	outcome, ok := f.outcomes[src.URL]
	if !ok {
		return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginEmpty}
	}
	return outcome
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func livePost(hash, title, link string, published time.Time) domain.RawPost {
	return domain.RawPost{
		IdentityHash: hash,
		Kind:         domain.SourceFeed,
		Title:        title,
		BodyText:     title,
		BodyHTML:     title,
		SourceName:   "Test",
		PublishedAt:  published,
		Link:         link,
	}
}

func testAppConfig() config.AppConfig {
	return config.AppConfig{
		DefaultNewsLimit: 50,
		MaxNewsLimit:     100,
		Channels: []config.ChannelSource{
			{Username: "nextgen_NFT", Name: "NFT Podarki", Category: "nft"},
		},
		Feeds: []config.FeedSource{
			{URL: "https://crypto.example/rss", Name: "Crypto Feed", Category: "crypto"},
			{URL: "https://tech.example/rss", Name: "Tech Feed", Category: "tech"},
		},
	}
}

func newTestPipeline(cfg config.AppConfig, chExt *fakeChannelExtractor, feedExt *fakeFeedExtractor, cache *ResultCache) *Pipeline {
	categorizer := NewCategorizer(map[string][]string{
		"crypto": {"bitcoin"},
		"gifts":  {"подарок"},
	}, []string{"gifts", "crypto"})
	return NewPipeline(cfg, chExt, feedExt, categorizer, cache, discardLogger())
}

func TestPipeline_Run_SortsAndTruncates(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	var posts []domain.RawPost
	// Посты подаются в перемешанном порядке дат.
	for _, offset := range []int{3, 9, 1, 7, 5, 8, 2, 6, 4, 10} {
		posts = append(posts, livePost(
			string(rune('a'+offset)), "Пост", "https://crypto.example/"+string(rune('a'+offset)),
			base.Add(-time.Duration(offset)*time.Hour),
		))
	}
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: posts},
	}}
	p := newTestPipeline(testAppConfig(), &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 3)

	require.NoError(t, err)
	require.Len(t, articles, 3)
	for i := 1; i < len(articles); i++ {
		assert.False(t, articles[i-1].PublishDate.Before(articles[i].PublishDate),
			"articles must be sorted by publish date descending")
	}
	// Три самых свежих - смещения 1, 2 и 3 часа.
	assert.Equal(t, base.Add(-1*time.Hour), articles[0].PublishDate)
	assert.Equal(t, base.Add(-2*time.Hour), articles[1].PublishDate)
	assert.Equal(t, base.Add(-3*time.Hour), articles[2].PublishDate)
}

func TestPipeline_Run_FailedSourceDoesNotBlockOthers(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginFailed, Err: errors.New("timeout")},
		"https://tech.example/rss": {Source: "Tech Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h1", "Живой пост", "https://tech.example/1", published),
		}},
	}}
	p := newTestPipeline(testAppConfig(), &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 10)

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Живой пост", articles[0].Title)
}

func TestPipeline_Run_CacheHitSkipsFetch(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	chExt := &fakeChannelExtractor{outcomes: map[string]domain.FetchOutcome{
		"nextgen_NFT": {Source: "NFT Podarki", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h1", "Пост", "https://t.me/nextgen_NFT/1", published),
		}},
	}}
	feedExt := &fakeFeedExtractor{}
	p := newTestPipeline(testAppConfig(), chExt, feedExt, NewResultCache(time.Minute))

	first, err := p.Run(context.Background(), CategoryAll, 10)
	require.NoError(t, err)
	fetchesAfterFirst := chExt.calls.Load() + feedExt.calls.Load()

	second, err := p.Run(context.Background(), CategoryAll, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, fetchesAfterFirst, chExt.calls.Load()+feedExt.calls.Load(),
		"cached run must not touch sources")
}

func TestPipeline_Run_StaleCacheOnTotalFailure(t *testing.T) {
	cache := NewResultCache(time.Minute)
	current := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	published := current.Add(-time.Hour)
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h1", "Старый пост", "https://crypto.example/1", published),
		}},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	cfg.Feeds = cfg.Feeds[:1]
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, cache)

	first, err := p.Run(context.Background(), CategoryAll, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Кэш истек, а единственный источник начал отказывать.
	current = current.Add(2 * time.Minute)
	feedExt.outcomes["https://crypto.example/rss"] = domain.FetchOutcome{
		Source: "Crypto Feed", Origin: domain.OriginFailed, Err: errors.New("connection refused"),
	}

	stale, err := p.Run(context.Background(), CategoryAll, 10)
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestPipeline_Run_NoDataWhenNothingCached(t *testing.T) {
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginFailed, Err: errors.New("timeout")},
		"https://tech.example/rss":   {Source: "Tech Feed", Origin: domain.OriginFailed, Err: errors.New("timeout")},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	_, err := p.Run(context.Background(), CategoryAll, 10)

	assert.ErrorIs(t, err, ErrNoData)
}

func TestPipeline_Run_EmptySourcesAreNotFailures(t *testing.T) {
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginEmpty},
		"https://tech.example/rss":   {Source: "Tech Feed", Origin: domain.OriginFailed, Err: errors.New("timeout")},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 10)

	require.NoError(t, err, "empty page is a valid result, not an outage")
	assert.Empty(t, articles)
}

func TestPipeline_Run_CategoryFiltersSources(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	chExt := &fakeChannelExtractor{outcomes: map[string]domain.FetchOutcome{
		"nextgen_NFT": {Source: "NFT Podarki", Origin: domain.OriginLive, Posts: []domain.RawPost{
			{IdentityHash: "n1", Kind: domain.SourceChannel, Title: "Дроп", BodyText: "Дроп",
				CategoryHint: "nft", SourceName: "NFT Podarki", PublishedAt: published, Link: "https://t.me/nextgen_NFT/1"},
		}},
	}}
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("c1", "Курс", "https://crypto.example/1", published),
		}},
	}}
	p := newTestPipeline(testAppConfig(), chExt, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), "nft", 10)

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Дроп", articles[0].Title)
	assert.Zero(t, feedExt.calls.Load(), "feeds of other categories must not be polled")
}

func TestPipeline_Run_CategoryHintBeatsKeywords(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			{IdentityHash: "h1", Kind: domain.SourceFeed, Title: "Подарок за bitcoin", BodyText: "Подарок",
				CategoryHint: "crypto", SourceName: "Crypto Feed", PublishedAt: published, Link: "https://crypto.example/1"},
		}},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 10)

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "crypto", articles[0].Category)
}

func TestPipeline_Run_KeywordsFillMissingHint(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h1", "Bitcoin подарок", "https://crypto.example/1", published),
		}},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 10)

	require.NoError(t, err)
	require.Len(t, articles, 1)
	// Совпадения по gifts и crypto равны, приоритет отдает gifts.
	assert.Equal(t, "gifts", articles[0].Category)
}

func TestPipeline_ClampRequest(t *testing.T) {
	p := newTestPipeline(testAppConfig(), &fakeChannelExtractor{}, &fakeFeedExtractor{}, NewResultCache(time.Minute))

	tests := []struct {
		name      string
		category  string
		limit     int
		wantCat   string
		wantLimit int
	}{
		{name: "empty category means all", category: "", limit: 10, wantCat: CategoryAll, wantLimit: 10},
		{name: "zero limit uses default", category: "crypto", limit: 0, wantCat: "crypto", wantLimit: 50},
		{name: "negative limit uses default", category: "crypto", limit: -5, wantCat: "crypto", wantLimit: 50},
		{name: "oversized limit clamped", category: "all", limit: 1000, wantCat: "all", wantLimit: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, limit := p.clampRequest(tt.category, tt.limit)
			assert.Equal(t, tt.wantCat, cat)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestPipeline_Run_DeduplicatesAcrossSources(t *testing.T) {
	published := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	feedExt := &fakeFeedExtractor{outcomes: map[string]domain.FetchOutcome{
		"https://crypto.example/rss": {Source: "Crypto Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h1", "Big News!!", "https://example.org/a", published),
		}},
		"https://tech.example/rss": {Source: "Tech Feed", Origin: domain.OriginLive, Posts: []domain.RawPost{
			livePost("h2", "big news", "https://example.org/a", published.Add(-time.Minute)),
		}},
	}}
	cfg := testAppConfig()
	cfg.Channels = nil
	p := newTestPipeline(cfg, &fakeChannelExtractor{}, feedExt, NewResultCache(time.Minute))

	articles, err := p.Run(context.Background(), CategoryAll, 10)

	require.NoError(t, err)
	assert.Len(t, articles, 1)
}
