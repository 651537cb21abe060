package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/lernbank-api/internal/handler/dto"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// SessionHandler обрабатывает запросы на сборку учебных сессий
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// HistoryEntryRequest — один недавно показанный шаблон из истории клиента
type HistoryEntryRequest struct {
	TemplateID string    `json:"template_id" binding:"required"`
	PromptText string    `json:"prompt_text"`
	ShownAt    time.Time `json:"shown_at"`
}

// SelectSessionRequest представляет запрос на сборку сессии
type SelectSessionRequest struct {
	UserID             string                `json:"user_id"`
	GradeLevel         int                   `json:"grade_level" binding:"required,min=1"`
	Quarter            string                `json:"quarter" binding:"required"`
	Domain             string                `json:"domain"`          // Пусто = все домены
	Count              int                   `json:"count" binding:"required,min=1,max=50"`
	MinDistinctDomains int                   `json:"min_distinct_domains"`
	Difficulty         string                `json:"difficulty"` // Пусто = любая
	History            []HistoryEntryRequest `json:"history"`
}

// SelectSession собирает набор шаблонов для одной сессии
func (h *SessionHandler) SelectSession(c *gin.Context) {
	var req SelectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history := make([]templatebank.HistoryEntry, 0, len(req.History))
	for _, entry := range req.History {
		history = append(history, templatebank.HistoryEntry{
			TemplateID: entry.TemplateID,
			PromptText: entry.PromptText,
			Timestamp:  entry.ShownAt,
		})
	}

	templates, err := h.sessionService.SelectSession(c.Request.Context(), service.SessionRequest{
		UserID:             req.UserID,
		GradeLevel:         req.GradeLevel,
		Quarter:            req.Quarter,
		Domain:             req.Domain,
		Count:              req.Count,
		MinDistinctDomains: req.MinDistinctDomains,
		Difficulty:         req.Difficulty,
		History:            history,
	})
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(templates, req.Count))
}

// handleBankError преобразует ошибки сервисного слоя в HTTP-статусы
func handleBankError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		log.Printf("ERROR: Store unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
	default:
		log.Printf("ERROR: Internal server error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
