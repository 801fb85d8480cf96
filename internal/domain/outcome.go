package domain

// FetchOrigin описывает, чем закончилось обращение к одному источнику.
type FetchOrigin string

const (
	// OriginLive - посты извлечены из реального ответа источника.
	OriginLive FetchOrigin = "live"
	// OriginPlaceholder - источник недоступен, посты синтезированы
	// детерминированным генератором-заглушкой.
	OriginPlaceholder FetchOrigin = "placeholder"
	// OriginEmpty - источник ответил, но постов в нем нет.
	OriginEmpty FetchOrigin = "empty"
	// OriginFailed - источник недоступен и заглушка не предусмотрена.
	OriginFailed FetchOrigin = "failed"
)

// FetchOutcome - результат обращения к одному источнику.
// Ожидаемые сбои (таймаут, пустая лента) не являются ошибками конвейера:
// оркестратор агрегирует исходы явно, вместо перехвата исключительных ситуаций.
type FetchOutcome struct {
	Source string
	Origin FetchOrigin
	Posts  []RawPost
	Err    error
}
