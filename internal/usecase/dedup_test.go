package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftnews/internal/domain"
)

func TestDeduplicate_CollapsesPunctuationVariants(t *testing.T) {
	posts := []domain.RawPost{
		{Title: "Big News!!", Link: "https://example.org/a", SourceName: "Первый"},
		{Title: "big news", Link: "https://example.org/a", SourceName: "Второй"},
	}

	unique := Deduplicate(posts)

	require.Len(t, unique, 1)
	assert.Equal(t, "Первый", unique[0].SourceName)
}

func TestDeduplicate_SameTitleDifferentLinksKept(t *testing.T) {
	posts := []domain.RawPost{
		{Title: "Одна новость", Link: "https://example.org/a"},
		{Title: "Одна новость", Link: "https://example.org/b"},
	}

	assert.Len(t, Deduplicate(posts), 2)
}

func TestDeduplicate_SameLinkDifferentTitlesKept(t *testing.T) {
	posts := []domain.RawPost{
		{Title: "Первый пост", Link: "https://t.me/nextgen_NFT"},
		{Title: "Второй пост", Link: "https://t.me/nextgen_NFT"},
	}

	assert.Len(t, Deduplicate(posts), 2)
}

func TestDeduplicate_PreservesFirstOccurrenceOrder(t *testing.T) {
	posts := []domain.RawPost{
		{Title: "A", Link: "1"},
		{Title: "B", Link: "2"},
		{Title: "a!!", Link: "1"},
		{Title: "C", Link: "3"},
	}

	unique := Deduplicate(posts)

	require.Len(t, unique, 3)
	assert.Equal(t, "A", unique[0].Title)
	assert.Equal(t, "B", unique[1].Title)
	assert.Equal(t, "C", unique[2].Title)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	posts := []domain.RawPost{
		{Title: "Big News!!", Link: "1"},
		{Title: "big news", Link: "1"},
		{Title: "Другое", Link: "2"},
	}

	once := Deduplicate(posts)
	twice := Deduplicate(once)

	assert.Equal(t, once, twice)
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "punctuation stripped", in: "Big News!!", expected: "big news"},
		{name: "whitespace collapsed", in: "  Big \t News  ", expected: "big news"},
		{name: "cyrillic preserved", in: "Новости NFT #1", expected: "новости nft 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTitle(tt.in))
		})
	}
}
