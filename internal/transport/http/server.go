package http

import (
	"log/slog"
	"net/http"
)

// NewServer создает и настраивает HTTP-сервер с роутингом и middleware.
// Регистрирует эндпоинты API и добавляет middleware для логирования и CORS.
func NewServer(log *slog.Logger, h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/news", h.getNews)
	mux.HandleFunc("/api/news/archive", h.getNewsArchive)
	mux.HandleFunc("/api/categories", h.getCategories)
	mux.HandleFunc("/api/health", h.healthCheck)
	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = corsMiddleware()(handler)
	return handler
}

// corsMiddleware создает middleware для обработки CORS.
// Разрешает запросы с любого origin и обрабатывает preflight OPTIONS запросы.
func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
