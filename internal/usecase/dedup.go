package usecase

import (
	"strings"
	"unicode"

	"giftnews/internal/domain"
)

// dedupKey - ключ распознавания дубликатов: нормализованный заголовок
// в паре со ссылкой на оригинал.
type dedupKey struct {
	title string
	link  string
}

// Deduplicate удаляет из последовательности постов повторы, пришедшие
// из разных источников, сохраняя порядок первого вхождения.
// Фильтр чистый и однопроходный, поэтому идемпотентен: повторный
// запуск на собственном результате ничего не меняет.
func Deduplicate(posts []domain.RawPost) []domain.RawPost {
	seen := make(map[dedupKey]struct{}, len(posts))
	unique := make([]domain.RawPost, 0, len(posts))
	for _, post := range posts {
		key := dedupKey{title: normalizeTitle(post.Title), link: post.Link}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, post)
	}
	return unique
}

// normalizeTitle приводит заголовок к канонической форме для сравнения:
// нижний регистр, без пунктуации, пробелы схлопнуты.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
