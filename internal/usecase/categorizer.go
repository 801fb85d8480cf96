package usecase

import (
	"sort"
	"strings"

	"giftnews/internal/domain"
)

// Categorizer присваивает тексту категорию по таблице ключевых слов.
// Таблица и список приоритетов задаются конфигурацией и после создания
// не изменяются, поэтому категоризатор безопасен для конкурентного чтения.
type Categorizer struct {
	keywords map[string][]string
	priority []string
}

// NewCategorizer создает категоризатор. Ключевые слова приводятся
// к нижнему регистру один раз при создании.
func NewCategorizer(keywords map[string][]string, priority []string) *Categorizer {
	lowered := make(map[string][]string, len(keywords))
	for category, words := range keywords {
		ws := make([]string, 0, len(words))
		for _, w := range words {
			ws = append(ws, strings.ToLower(w))
		}
		lowered[category] = ws
	}
	return &Categorizer{keywords: lowered, priority: priority}
}

// Categorize возвращает ровно одну категорию для пары заголовок/описание.
// Подсчитывает вхождения ключевых подстрок по каждой категории; побеждает
// категория с наибольшим числом совпадений, ничья разрешается списком
// приоритетов. Если совпадений нет вовсе, возвращается general.
// Результат детерминирован для одинакового входа.
func (c *Categorizer) Categorize(title, description string) string {
	content := strings.ToLower(title + " " + description)

	scores := make(map[string]int)
	maxScore := 0
	for category, words := range c.keywords {
		score := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				score++
			}
		}
		if score > 0 {
			scores[category] = score
			if score > maxScore {
				maxScore = score
			}
		}
	}
	if len(scores) == 0 {
		return domain.CategoryGeneral
	}

	tied := make([]string, 0, len(scores))
	for category, score := range scores {
		if score == maxScore {
			tied = append(tied, category)
		}
	}
	for _, category := range c.priority {
		for _, t := range tied {
			if t == category {
				return category
			}
		}
	}
	// Ни одна из лидирующих категорий не входит в список приоритетов:
	// побеждает лексикографически первая, чтобы результат не зависел
	// от порядка обхода таблицы.
	sort.Strings(tied)
	return tied[0]
}
