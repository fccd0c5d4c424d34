package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkhub/internal/middleware"
	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"github.com/SergeiKhy/linkhub/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IP клика, если клиентский адрес определить не удалось
const unknownIP = "unknown"

type LinkHandler struct {
	links   service.LinkService
	stats   service.StatsService
	clicks  service.ClickQueue
	baseURL string
	logger  *zap.Logger
}

func NewLinkHandler(links service.LinkService, stats service.StatsService, clicks service.ClickQueue, baseURL string, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		links:   links,
		stats:   stats,
		clicks:  clicks,
		baseURL: baseURL,
		logger:  logger,
	}
}

type CreateLinkRequest struct {
	URL        string `json:"url" binding:"required"`
	CustomCode string `json:"custom_code,omitempty"`
}

type CreateLinkResponse struct {
	ID          string    `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CustomCode  bool      `json:"custom_code"`
	CreatedAt   time.Time `json:"created_at"`
}

type UpdateLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

type BulkEditRequest struct {
	LinkIDs     []string `json:"link_ids" binding:"required"`
	Mode        string   `json:"mode" binding:"required"`
	NewURL      string   `json:"new_url,omitempty"`
	FindText    string   `json:"find_text,omitempty"`
	ReplaceText string   `json:"replace_text,omitempty"`
}

type DeleteLinksRequest struct {
	LinkIDs []string `json:"link_ids" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Redirect отправляет на адрес назначения и ставит клик в очередь.
// Запись клика не задерживает ответ.
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	link, err := h.links.GetLink(c.Request.Context(), code)
	if err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			h.logger.Error("Failed to resolve link", zap.String("short_code", code), zap.Error(err))
		}
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = unknownIP
	}
	click := models.Click{
		Timestamp: time.Now().UTC(),
		IP:        ip,
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}
	if err := h.clicks.Enqueue(code, click); err != nil {
		h.logger.Debug("Click not recorded (non-blocking)", zap.String("short_code", code), zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, service.AffiliateURL(link))
}

// CreateLink создаёт короткую ссылку от имени клиента
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	link, err := h.links.CreateLink(c.Request.Context(), &models.CreateLinkInput{
		OriginalURL: req.URL,
		CustomCode:  req.CustomCode,
		CustomerID:  middleware.CustomerID(c),
	})
	if err != nil {
		h.writeError(c, "Failed to create link", err)
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
		CustomCode:  link.CustomCode,
		CreatedAt:   link.CreatedAt,
	})
}

// ListLinks отдаёт ссылки клиента
func (h *LinkHandler) ListLinks(c *gin.Context) {
	links, err := h.links.ListLinks(c.Request.Context(), middleware.CustomerID(c))
	if err != nil {
		h.writeError(c, "Failed to list links", err)
		return
	}

	for i := range links {
		links[i].ShortURL = h.shortURL(links[i].ShortCode)
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// UpdateLink меняет адрес назначения ссылки
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	link, err := h.links.UpdateLink(c.Request.Context(), middleware.CustomerID(c), c.Param("id"), req.URL)
	if err != nil {
		h.writeError(c, "Failed to update link", err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// BulkEdit меняет адреса нескольких ссылок
func (h *LinkHandler) BulkEdit(c *gin.Context) {
	var req BulkEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	updated, err := h.links.BulkEdit(c.Request.Context(), &models.BulkEditInput{
		CustomerID:  middleware.CustomerID(c),
		LinkIDs:     req.LinkIDs,
		Mode:        models.BulkEditMode(req.Mode),
		NewURL:      req.NewURL,
		FindText:    req.FindText,
		ReplaceText: req.ReplaceText,
	})
	if err != nil {
		h.writeError(c, "Bulk edit failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteLinks удаляет ссылки клиента вместе со статистикой
func (h *LinkHandler) DeleteLinks(c *gin.Context) {
	var req DeleteLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	deleted, err := h.links.DeleteLinks(c.Request.Context(), middleware.CustomerID(c), req.LinkIDs)
	if err != nil {
		h.writeError(c, "Failed to delete links", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// LinkStats отдаёт статистику кликов по короткому коду
func (h *LinkHandler) LinkStats(c *gin.Context) {
	stats, err := h.stats.LinkStats(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, "Failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CustomerStats отдаёт итоги по клиенту
func (h *LinkHandler) CustomerStats(c *gin.Context) {
	stats, err := h.stats.CustomerStats(c.Request.Context(), middleware.CustomerID(c))
	if err != nil {
		h.writeError(c, "Failed to get customer stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Health отвечает, что процесс жив, и показывает размер очереди кликов
func (h *LinkHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"pending_clicks": h.clicks.Pending(),
	})
}

func (h *LinkHandler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

// writeError переводит ошибку сервиса в HTTP статус
func (h *LinkHandler) writeError(c *gin.Context, msg string, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, service.ErrInvalidURL):
		status, code = http.StatusBadRequest, "invalid_url"
	case errors.Is(err, service.ErrInvalidCode):
		status, code = http.StatusBadRequest, "invalid_code"
	case errors.Is(err, service.ErrMissingCustomer):
		status, code = http.StatusBadRequest, "missing_customer"
	case errors.Is(err, service.ErrInvalidEdit):
		status, code = http.StatusBadRequest, "invalid_edit"
	case errors.Is(err, service.ErrNothingUpdated):
		status, code = http.StatusBadRequest, "nothing_updated"
	case errors.Is(err, repository.ErrLinkNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrCodeExists):
		status, code = http.StatusConflict, "code_exists"
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		status, code = http.StatusServiceUnavailable, "code_space_exhausted"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		c.JSON(status, ErrorResponse{Error: code, Message: msg})
		return
	}

	h.logger.Warn(msg, zap.Error(err))
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
