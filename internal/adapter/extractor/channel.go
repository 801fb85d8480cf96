package extractor

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"giftnews/internal/config"
	"giftnews/internal/domain"
)

const (
	// maxChannelPosts - максимум сообщений, извлекаемых с одной страницы канала.
	maxChannelPosts = 15
	// placeholderCount - сколько синтетических постов генерирует заглушка.
	placeholderCount = 5

	titleLimit            = 150
	placeholderTitleLimit = 80
	identityPrefixLen     = 50
)

var (
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
	photoStyleRe = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)
)

// ChannelExtractor извлекает посты с публичной страницы канала
// (https://t.me/s/<username>). Сообщения, не прошедшие структурный разбор,
// пропускаются по одному; недоступность страницы целиком деградирует
// в детерминированную заглушку, чтобы конвейер оставался работоспособным.
type ChannelExtractor struct {
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time
}

// NewChannelExtractor создает новый экстрактор постов канала.
func NewChannelExtractor(fetcher Fetcher, log *slog.Logger) *ChannelExtractor {
	return &ChannelExtractor{
		fetcher: fetcher,
		log:     log,
		now:     time.Now,
	}
}

// Extract загружает и разбирает страницу канала.
// Никогда не возвращает исход failed: при любом сбое источника
// подставляются синтетические посты с пометкой placeholder.
func (e *ChannelExtractor) Extract(ctx context.Context, src config.ChannelSource) domain.FetchOutcome {
	log := e.log.With(
		slog.String("component", "channel-extractor"),
		slog.String("source", src.Name),
	)
	url := fmt.Sprintf("https://t.me/s/%s", src.Username)
	reader, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("Channel page unavailable, using placeholder posts", slog.Any("error", err))
		return e.placeholderOutcome(src)
	}
	defer reader.Close()

	posts, err := e.parsePage(reader, src)
	if err != nil {
		log.Warn("Channel page parsing failed, using placeholder posts", slog.Any("error", err))
		return e.placeholderOutcome(src)
	}
	if len(posts) == 0 {
		log.Warn("No posts extracted from channel page, using placeholder posts")
		return e.placeholderOutcome(src)
	}
	log.Info("Channel posts extracted", slog.Int("count", len(posts)))
	return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginLive, Posts: posts}
}

// parsePage разбирает HTML страницы канала и возвращает посты в порядке документа.
// Итоговую сортировку по дате выполняет конвейер.
func (e *ChannelExtractor) parsePage(reader io.Reader, src config.ChannelSource) ([]domain.RawPost, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel page: %w", err)
	}
	posts := make([]domain.RawPost, 0, maxChannelPosts)
	doc.Find("div.tgme_widget_message").EachWithBreak(func(i int, msg *goquery.Selection) bool {
		if len(posts) >= maxChannelPosts {
			return false
		}
		post, ok := e.parseMessage(i, msg, src)
		if !ok {
			e.log.Debug("Skipping malformed channel message",
				slog.String("source", src.Name),
				slog.Int("position", i),
			)
			return true
		}
		posts = append(posts, post)
		return true
	})
	return posts, nil
}

// parseMessage извлекает один пост из контейнера сообщения.
// Возвращает ok=false, если в сообщении нет пригодного текстового блока.
func (e *ChannelExtractor) parseMessage(pos int, msg *goquery.Selection, src config.ChannelSource) (domain.RawPost, bool) {
	textSel := msg.Find("div.tgme_widget_message_text").First()
	if textSel.Length() == 0 {
		return domain.RawPost{}, false
	}
	fullText := collapseWhitespace(textSel.Text())
	if fullText == "" {
		return domain.RawPost{}, false
	}
	bodyHTML, err := goquery.OuterHtml(textSel)
	if err != nil {
		bodyHTML = fullText
	}

	published := e.now()
	if dt, ok := msg.Find("time").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dt)); err == nil {
			published = t
		}
	}

	return domain.RawPost{
		IdentityHash: identityHash(src.Username, fmt.Sprint(pos), runePrefix(fullText, identityPrefixLen)),
		Kind:         domain.SourceChannel,
		Title:        messageTitle(fullText, src.Name),
		BodyText:     fullText,
		BodyHTML:     bodyHTML,
		SourceName:   src.Name,
		CategoryHint: src.Category,
		PublishedAt:  published,
		Link:         fmt.Sprintf("https://t.me/%s", src.Username),
		Media:        extractMedia(msg),
	}, true
}

// extractMedia находит не более одного медиа-вложения в сообщении.
// Порядок проверки фиксирован: фото, затем видео, затем документ;
// выигрывает первое совпадение.
func extractMedia(msg *goquery.Selection) *domain.MediaReference {
	if photo := msg.Find("a.tgme_widget_message_photo_wrap").First(); photo.Length() > 0 {
		if url := photoURL(photo); url != "" {
			return &domain.MediaReference{Kind: domain.MediaPhoto, URL: url, Thumbnail: url}
		}
	}
	if video := msg.Find("video").First(); video.Length() > 0 {
		if url := absoluteURL(video.AttrOr("src", "")); url != "" {
			return &domain.MediaReference{
				Kind:      domain.MediaVideo,
				URL:       url,
				Thumbnail: absoluteURL(video.AttrOr("poster", "")),
			}
		}
	}
	if doc := msg.Find("a.tgme_widget_message_document_wrap").First(); doc.Length() > 0 {
		// Прямой ссылки на файл публичная страница не отдает.
		return &domain.MediaReference{Kind: domain.MediaDocument}
	}
	return nil
}

// photoURL достает URL фотографии из обертки. Сначала пробует
// background-image в атрибуте style, затем href самой обертки,
// затем вложенный тег img.
func photoURL(photo *goquery.Selection) string {
	if m := photoStyleRe.FindStringSubmatch(photo.AttrOr("style", "")); m != nil {
		return absoluteURL(strings.ReplaceAll(m[1], "&amp;", "&"))
	}
	if href := photo.AttrOr("href", ""); href != "" {
		return absoluteURL(href)
	}
	if src := photo.Find("img").First().AttrOr("src", ""); src != "" {
		return absoluteURL(src)
	}
	return ""
}

// absoluteURL дополняет протокол-относительные ссылки схемой https.
func absoluteURL(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

// messageTitle выводит заголовок из первого предложения текста
// (не более titleLimit символов). Если пригодного текста нет,
// генерирует заголовок из имени канала.
func messageTitle(text, channelName string) string {
	sentences := sentenceRe.Split(text, 2)
	if len(sentences) > 0 {
		if title := strings.TrimSpace(runePrefix(sentences[0], titleLimit)); title != "" {
			return title
		}
	}
	return fmt.Sprintf("Пост от %s", channelName)
}

// placeholderOutcome синтезирует посты-заглушки по шаблонам категории канала.
// Генерация детерминирована: сдвиг времени публикации выводится из хэша
// имени канала, поэтому повторные запуски дают стабильный набор.
func (e *ChannelExtractor) placeholderOutcome(src config.ChannelSource) domain.FetchOutcome {
	templates, ok := placeholderTemplates[src.Category]
	if !ok {
		templates = placeholderTemplates["community"]
	}
	seed := fnv.New32a()
	seed.Write([]byte(src.Username))
	offset := int(seed.Sum32() % 12)

	base := e.now()
	posts := make([]domain.RawPost, 0, placeholderCount)
	for i := 0; i < placeholderCount; i++ {
		text := templates[i%len(templates)]
		posts = append(posts, domain.RawPost{
			IdentityHash: identityHash(src.Username, fmt.Sprint(i), text),
			Kind:         domain.SourceChannel,
			Title:        placeholderTitle(text),
			BodyText:     text,
			SourceName:   src.Name,
			CategoryHint: src.Category,
			PublishedAt:  base.Add(-time.Duration(i*4+offset) * time.Hour),
			Link:         fmt.Sprintf("https://t.me/%s", src.Username),
			Placeholder:  true,
		})
	}
	return domain.FetchOutcome{Source: src.Name, Origin: domain.OriginPlaceholder, Posts: posts}
}

// placeholderTitle строит заголовок заглушки из первого предложения шаблона.
func placeholderTitle(text string) string {
	first := strings.SplitN(text, ".", 2)[0]
	return truncateRunes(first, placeholderTitleLimit)
}

// placeholderTemplates - шаблоны синтетических постов по категориям.
var placeholderTemplates = map[string][]string{
	"gifts": {
		"🎁 Новые бесплатные подарки! Успейте получить эксклюзивные бонусы",
		"💝 Промокоды на скидки до 70%! Ограниченное предложение",
		"🎉 Розыгрыш ценных призов среди подписчиков канала",
		"🛍️ Лучшие предложения дня - не пропустите!",
	},
	"crypto": {
		"📈 Анализ рынка: Bitcoin показывает рост на 5%",
		"💰 Новые возможности DeFi инвестиций - обзор проектов",
		"🚀 Перспективные альткоины для долгосрочных инвестиций",
		"⚡ Срочные новости: крупные движения на криптовалютном рынке",
	},
	"nft": {
		"🖼️ Новая коллекция NFT от известного художника уже в продаже",
		"💎 Раритетные токены на аукционе - последний шанс приобрести",
		"🎨 Обзор лучших NFT художников недели",
		"📊 Статистика NFT рынка: рост объемов торгов на 15%",
	},
	"tech": {
		"💻 Революционные технологии 2025 года - что нас ждет",
		"🔧 Обзор новейших гаджетов от мировых производителей",
		"🚀 Стартапы в сфере ИИ привлекли рекордные инвестиции",
		"📱 ТОП мобильных приложений для повышения продуктивности",
	},
	"community": {
		"👥 Обсуждение актуальных тем в нашем сообществе",
		"💬 Важные новости и обновления для участников",
		"🔔 Анонс предстоящих мероприятий и встреч",
		"📢 Полезные советы и рекомендации от экспертов",
	},
}
