// Package extractor содержит экстракторы сырых постов из внешних источников:
// публичной страницы канала и RSS-лент. Экстракторы не поднимают ожидаемые
// сбои наверх, а возвращают явный исход (см. domain.FetchOutcome).
package extractor

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Fetcher определяет интерфейс для загрузки содержимого источника по URL.
// Возвращает io.ReadCloser, который должен быть закрыт после использования.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// identityHash вычисляет хэш идентичности поста.
// Повторное извлечение того же поста дает тот же хэш.
func identityHash(parts ...string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(parts, "_"))))
}

// collapseWhitespace схлопывает последовательности пробельных символов в один пробел.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncateRunes обрезает строку до n рун, добавляя многоточие при усечении.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// runePrefix возвращает первые n рун строки без маркера усечения.
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// stripHTML удаляет теги из HTML-фрагмента, оставляя только текст.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return collapseWhitespace(b.String())
}
