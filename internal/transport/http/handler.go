package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"giftnews/internal/domain"
	"giftnews/internal/usecase"
)

type newsRunner interface {
	Run(ctx context.Context, category string, limit int) ([]domain.NormalizedArticle, error)
}

type newsStore interface {
	GetNews(ctx context.Context, category string, limit int) ([]domain.NormalizedArticle, error)
}

type Handler struct {
	log        *slog.Logger
	pipeline   newsRunner
	store      newsStore
	categories []string
}

func NewHandler(log *slog.Logger, pipeline newsRunner, store newsStore, keywords map[string][]string) *Handler {
	categories := make([]string, 0, len(keywords)+1)
	for category := range keywords {
		categories = append(categories, category)
	}
	categories = append(categories, domain.CategoryGeneral)
	sort.Strings(categories)
	return &Handler{
		log:        log,
		pipeline:   pipeline,
		store:      store,
		categories: categories,
	}
}

// parseNewsQuery извлекает общие параметры category и limit.
// Возвращает ошибку формата лимита, пределы проверяет вызываемый слой.
func parseNewsQuery(r *http.Request) (category string, limit int, err error) {
	category = r.URL.Query().Get("category")
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return "", 0, fmt.Errorf("invalid limit %q", limitStr)
		}
	}
	return category, limit, nil
}

// getNews - хендлер для эндпоинта GET /api/news?category=&limit=
func (h *Handler) getNews(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getNews"
	log := h.log.With(slog.String("op", op))
	if r.Method != http.MethodGet {
		log.Warn("method not allowed")
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	category, limit, err := parseNewsQuery(r)
	if err != nil {
		log.Warn("invalid limit parameter", slog.Any("error", err))
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
		return
	}

	articles, err := h.pipeline.Run(r.Context(), category, limit)
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			log.Warn("No news available", slog.String("category", category))
			respondWithError(w, http.StatusServiceUnavailable, "No news available")
			return
		}
		log.Error("Failed to get news", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  articles,
		"total": len(articles),
	})
}

// getNewsArchive - хендлер для эндпоинта GET /api/news/archive?category=&limit=
// Отдает сохраненные статьи из хранилища, не дергая источники.
func (h *Handler) getNewsArchive(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getNewsArchive"
	log := h.log.With(slog.String("op", op))
	if r.Method != http.MethodGet {
		log.Warn("method not allowed")
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	category, limit, err := parseNewsQuery(r)
	if err != nil {
		log.Warn("invalid limit parameter", slog.Any("error", err))
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
		return
	}

	articles, err := h.store.GetNews(r.Context(), category, limit)
	if err != nil {
		log.Error("Failed to get archived news", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  articles,
		"total": len(articles),
	})
}

// getCategories - хендлер для эндпоинта GET /api/categories
func (h *Handler) getCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{"categories": h.categories})
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Вспомогательные функции для ответов
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
