package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/lernbank-api/internal/handler/dto"
	"github.com/yourusername/lernbank-api/internal/service"
)

// BankHandler обрабатывает кураторские операции над банком шаблонов:
// поступление кандидатов, покрытие, ротацию и выгрузки
type BankHandler struct {
	templateService *service.TemplateService
	coverageService *service.CoverageService
	rotationService *service.RotationService
}

// NewBankHandler создает новый обработчик банка шаблонов
func NewBankHandler(
	templateService *service.TemplateService,
	coverageService *service.CoverageService,
	rotationService *service.RotationService,
) *BankHandler {
	return &BankHandler{
		templateService: templateService,
		coverageService: coverageService,
		rotationService: rotationService,
	}
}

// InsertCandidatesRequest представляет пачку кандидатов на вставку
type InsertCandidatesRequest struct {
	Drafts []service.TemplateDraft `json:"drafts" binding:"required,min=1,max=500"`
}

// InsertCandidates вставляет пачку кандидатов в банк
func (h *BankHandler) InsertCandidates(c *gin.Context) {
	var req InsertCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.templateService.InsertCandidates(c.Request.Context(), req.Drafts)
	if err != nil {
		handleBankError(c, err)
		return
	}

	// Массовая вставка меняет картину покрытия
	h.coverageService.InvalidateCache()

	c.JSON(http.StatusCreated, report)
}

// GetTemplate возвращает полную форму шаблона для куратора
func (h *BankHandler) GetTemplate(c *gin.Context) {
	templateID := c.MustGet("templateID").(string)

	template, err := h.templateService.GetTemplate(c.Request.Context(), templateID)
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCuratorTemplateResponse(template))
}

// UpdateTemplate заменяет содержимое шаблона правкой куратора
func (h *BankHandler) UpdateTemplate(c *gin.Context) {
	templateID := c.MustGet("templateID").(string)

	var draft service.TemplateDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Request.Context(), templateID, draft)
	if err != nil {
		handleBankError(c, err)
		return
	}

	// Правка могла сменить кортеж таксономии
	h.coverageService.InvalidateCache()

	c.JSON(http.StatusOK, dto.NewCuratorTemplateResponse(template))
}

// DeleteTemplate физически удаляет шаблон из банка
func (h *BankHandler) DeleteTemplate(c *gin.Context) {
	templateID := c.MustGet("templateID").(string)

	if err := h.templateService.DeleteTemplate(c.Request.Context(), templateID); err != nil {
		handleBankError(c, err)
		return
	}

	h.coverageService.InvalidateCache()

	c.JSON(http.StatusOK, gin.H{"deleted": templateID})
}

// GetRotationStatus возвращает глубину очереди генерации и время последнего sweep
func (h *BankHandler) GetRotationStatus(c *gin.Context) {
	status, err := h.rotationService.Status()
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// CleanupTemplates помечает структурно сломанные шаблоны как удалённые
func (h *BankHandler) CleanupTemplates(c *gin.Context) {
	deleted, err := h.templateService.CleanupInvalid(c.Request.Context())
	if err != nil {
		handleBankError(c, err)
		return
	}

	if deleted > 0 {
		h.coverageService.InvalidateCache()
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// GetCoverage возвращает отчёт покрытия пространства таксономии
func (h *BankHandler) GetCoverage(c *gin.Context) {
	report, err := h.coverageService.AnalyzeCoverage(c.Request.Context())
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetPriorityQueue возвращает очередь пробелов для генерации
func (h *BankHandler) GetPriorityQueue(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	queue, err := h.coverageService.GetPriorityQueue(c.Request.Context(), limit)
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gaps": queue, "count": len(queue)})
}

// SweepRequest представляет запрос на пересчёт качества и архивацию
type SweepRequest struct {
	GradeLevel int    `json:"grade_level" binding:"required,min=1"`
	Domain     string `json:"domain"`
}

// SweepAndArchive пересчитывает качество и архивирует слабые шаблоны
func (h *BankHandler) SweepAndArchive(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	archived, err := h.rotationService.SweepAndArchive(c.Request.Context(), req.GradeLevel, req.Domain)
	if err != nil {
		handleBankError(c, err)
		return
	}

	if archived > 0 {
		h.coverageService.InvalidateCache()
	}

	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

// EnsurePoolRequest представляет запрос на проверку минимального пула
type EnsurePoolRequest struct {
	GradeLevel int    `json:"grade_level" binding:"required,min=1"`
	Domain     string `json:"domain" binding:"required"`
	Quarter    string `json:"quarter" binding:"required"`
	Minimum    int    `json:"minimum" binding:"required,min=1"`
}

// EnsureMinimumPool ставит заявку на генерацию при нехватке шаблонов
func (h *BankHandler) EnsureMinimumPool(c *gin.Context) {
	var req EnsurePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enqueued, err := h.rotationService.EnsureMinimumPool(
		c.Request.Context(), req.GradeLevel, req.Domain, req.Quarter, req.Minimum)
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enqueued": enqueued})
}

// GetOptimalTemplate возвращает лучший доступный шаблон с объяснением выбора
func (h *BankHandler) GetOptimalTemplate(c *gin.Context) {
	gradeLevel, err := strconv.Atoi(c.Query("grade_level"))
	if err != nil || gradeLevel < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grade_level"})
		return
	}

	opts := service.OptimalOptions{
		GradeLevel:          gradeLevel,
		Domain:              c.Query("domain"),
		PreferredDifficulty: c.Query("difficulty"),
	}
	if exclude := c.Query("exclude"); exclude != "" {
		opts.ExcludeIDs = strings.Split(exclude, ",")
	}

	pick, err := h.rotationService.GetOptimalTemplate(c.Request.Context(), opts)
	if err != nil {
		handleBankError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template":        dto.NewTemplateResponse(pick.Template),
		"rotation_reason": pick.RotationReason,
		"quality_score":   pick.QualityScore,
		"diversity_score": pick.DiversityScore,
	})
}

// Колонки кураторского xlsx-формата, в порядке следования
var xlsxColumns = []interface{}{
	"ID", "Класс", "Четверть", "Домен", "Подкатегория", "Сложность",
	"Тип вопроса", "Текст задания", "Решение", "Дистракторы", "Пояснение",
	"Статус", "Качество", "Игр",
}

// ExportTemplates выгружает шаблоны в xlsx для кураторского ревью
func (h *BankHandler) ExportTemplates(c *gin.Context) {
	status := c.Query("status")
	gradeLevel := 0
	if gradeStr := c.Query("grade_level"); gradeStr != "" {
		parsed, err := strconv.Atoi(gradeStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grade_level"})
			return
		}
		gradeLevel = parsed
	}

	templates, err := h.templateService.ListTemplates(c.Request.Context(), status, gradeLevel, c.Query("domain"))
	if err != nil {
		handleBankError(c, err)
		return
	}

	filename := fmt.Sprintf("templates_%s", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Шаблоны"
	f.SetSheetName("Sheet1", sheetName)

	// StreamWriter для эффективной работы с большими выгрузками
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[BankHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", xlsxColumns); err != nil {
		log.Printf("[BankHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range templates {
		t := &templates[i]
		rowNum := i + 2 // Начинаем со 2 строки (1 — заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			t.ID, t.GradeLevel, t.Quarter, t.Domain, t.Subcategory, t.Difficulty,
			t.QuestionType, sanitizeForExcel(t.PromptText), string(t.Solution),
			strings.Join(t.Distractors, "|"), sanitizeForExcel(t.Explanation),
			t.Status, t.QualityScore, t.PlayCount,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[BankHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[BankHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[BankHandler] Ошибка записи Excel в response: %v", err)
	}
}

// ImportTemplates принимает xlsx с кандидатами от куратора.
// Формат листа повторяет выгрузку, колонка ID игнорируется:
// каждый валидный ряд проходит обычный путь вставки кандидата.
func (h *BankHandler) ImportTemplates(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid xlsx file"})
		return
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workbook has no sheets"})
		return
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read sheet"})
		return
	}
	if len(rows) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sheet has no data rows"})
		return
	}

	drafts := make([]service.TemplateDraft, 0, len(rows)-1)
	for _, row := range rows[1:] {
		drafts = append(drafts, rowToDraft(row))
	}

	report, err := h.templateService.InsertCandidates(c.Request.Context(), drafts)
	if err != nil {
		handleBankError(c, err)
		return
	}

	h.coverageService.InvalidateCache()

	c.JSON(http.StatusCreated, report)
}

// rowToDraft разбирает один ряд xlsx в кандидата.
// Ошибки разбора не прерывают импорт: кривой ряд превращается в кандидата,
// который отбракует обычная валидация с указанием позиции
func rowToDraft(row []string) service.TemplateDraft {
	get := func(idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	gradeLevel, _ := strconv.Atoi(get(1))
	quality, _ := strconv.ParseFloat(get(12), 64)

	solution := get(8)
	if solution != "" && !json.Valid([]byte(solution)) {
		// Куратор пишет голую строку — оборачиваем в JSON-строку
		encoded, err := json.Marshal(solution)
		if err == nil {
			solution = string(encoded)
		}
	}

	var distractors []string
	if raw := get(9); raw != "" {
		distractors = strings.Split(raw, "|")
	}

	return service.TemplateDraft{
		GradeLevel:   gradeLevel,
		Quarter:      get(2),
		Domain:       get(3),
		Subcategory:  get(4),
		Difficulty:   get(5),
		QuestionType: get(6),
		PromptText:   get(7),
		Solution:     json.RawMessage(solution),
		Distractors:  distractors,
		Explanation:  get(10),
		Status:       get(11),
		QualityScore: quality,
	}
}

// sanitizeForExcel защищает от formula injection в xlsx-выгрузках
func sanitizeForExcel(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
