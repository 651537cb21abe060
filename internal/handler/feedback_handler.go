package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/lernbank-api/internal/service"
)

// FeedbackHandler обрабатывает сигналы использования от клиентов
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

// NewFeedbackHandler создает новый обработчик обратной связи
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// RecordAnswerRequest представляет исход одной попытки ответа
type RecordAnswerRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	WasCorrect *bool  `json:"was_correct" binding:"required"` // Указатель: false тоже обязателен
}

// RecordAnswer фиксирует исход попытки ответа
func (h *FeedbackHandler) RecordAnswer(c *gin.Context) {
	var req RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.feedbackService.RecordAnswer(c.Request.Context(), req.TemplateID, *req.WasCorrect); err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// RecordRatingRequest представляет звёздную оценку шаблона
type RecordRatingRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	Stars      int    `json:"stars" binding:"required"`
}

// RecordRating фиксирует звёздную оценку 1..5
func (h *FeedbackHandler) RecordRating(c *gin.Context) {
	var req RecordRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.feedbackService.RecordRating(c.Request.Context(), req.TemplateID, req.Stars); err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// RecordEmojiRequest представляет эмодзи-отзыв ученика
type RecordEmojiRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	UserID     string `json:"user_id"`
	Kind       string `json:"kind" binding:"required"`
}

// RecordEmoji фиксирует эмодзи-отзыв
func (h *FeedbackHandler) RecordEmoji(c *gin.Context) {
	var req RecordEmojiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.feedbackService.RecordEmojiFeedback(c.Request.Context(), req.TemplateID, req.UserID, req.Kind); err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// ListFeedback возвращает журнал эмодзи-отзывов по шаблону
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	templateID := c.MustGet("templateID").(string)

	feedback, err := h.feedbackService.ListFeedback(c.Request.Context(), templateID)
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedback, "count": len(feedback)})
}

// CleanupFeedback запускает cleanup-проход по накопленным отзывам
func (h *FeedbackHandler) CleanupFeedback(c *gin.Context) {
	report, err := h.feedbackService.CleanupNegativeFeedback(c.Request.Context())
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
