package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind определяет тип медиа-вложения поста.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// MediaReference описывает одно медиа-вложение поста.
// URL и Thumbnail могут отсутствовать (например, у документов
// публичная страница канала не отдает прямую ссылку).
type MediaReference struct {
	Kind      MediaKind `json:"type"`
	URL       string    `json:"url,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
}

// SourceKind определяет происхождение поста: страница канала или RSS-лента.
type SourceKind string

const (
	SourceChannel SourceKind = "channel"
	SourceFeed    SourceKind = "feed"
)

// RawPost представляет пост в том виде, в котором его извлек экстрактор,
// до категоризации и дедупликации. После создания не изменяется.
type RawPost struct {
	IdentityHash string
	Kind         SourceKind
	Title        string
	BodyText     string
	BodyHTML     string
	SourceName   string
	CategoryHint string
	PublishedAt  time.Time
	Link         string
	Media        *MediaReference
	// Placeholder выставляется генератором синтетических постов,
	// чтобы потребители могли отличить их от реально извлеченных.
	Placeholder bool
}

// NormalizedArticle - единица результата конвейера: RawPost с итоговой
// категорией и оценкой времени чтения. Именно этот тип отдается
// хранилищу и презентационному слою.
type NormalizedArticle struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	ContentHTML string          `json:"content_html"`
	Link        string          `json:"link"`
	PublishDate time.Time       `json:"publish_date"`
	Category    string          `json:"category"`
	SourceName  string          `json:"source"`
	Media       *MediaReference `json:"media,omitempty"`
	ReadingTime int             `json:"reading_time"`
	Placeholder bool            `json:"-"`
}

// CategoryGeneral - категория по умолчанию, когда ни источник,
// ни категоризатор ничего не определили.
const CategoryGeneral = "general"

// Normalize проецирует сырой пост в нормализованную статью.
// Пустая категория заменяется на general, время чтения считается
// из количества слов (200 слов в минуту, минимум 1 минута),
// HTML-версия текста дополняется разметкой медиа-вложения.
func Normalize(p RawPost, category string) NormalizedArticle {
	if category == "" {
		category = CategoryGeneral
	}
	html := p.BodyHTML
	if html == "" {
		html = p.BodyText
	}
	if p.Media != nil {
		html += mediaHTML(p.Media)
	}
	return NormalizedArticle{
		ID:          p.IdentityHash,
		Title:       p.Title,
		Content:     p.BodyText,
		ContentHTML: html,
		Link:        p.Link,
		PublishDate: p.PublishedAt,
		Category:    category,
		SourceName:  p.SourceName,
		Media:       p.Media,
		ReadingTime: readingTime(p.BodyText),
		Placeholder: p.Placeholder,
	}
}

// readingTime оценивает время чтения текста в минутах из расчета 200 слов в минуту.
func readingTime(text string) int {
	words := len(strings.Fields(text))
	if minutes := words / 200; minutes > 1 {
		return minutes
	}
	return 1
}

// mediaHTML строит инлайн-разметку для фото и видео вложений.
// Документы разметки не получают: у них нет прямой ссылки.
func mediaHTML(m *MediaReference) string {
	const style = `style="max-width:100%; height:auto; border-radius:8px; margin:10px 0;"`
	switch {
	case m.Kind == MediaPhoto && m.URL != "":
		return fmt.Sprintf(`<br><img src=%q %s/>`, m.URL, style)
	case m.Kind == MediaVideo && m.URL != "":
		return fmt.Sprintf(`<br><video controls poster=%q %s><source src=%q type="video/mp4"></video>`,
			m.Thumbnail, style, m.URL)
	default:
		return ""
	}
}
