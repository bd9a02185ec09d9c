package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lessonloop/gateway/internal/auth"
	"github.com/lessonloop/gateway/internal/models"
	"gorm.io/gorm"
)

// UsageHandler exposes a user's own usage records.
type UsageHandler struct {
	db *gorm.DB
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(db *gorm.DB) *UsageHandler {
	return &UsageHandler{db: db}
}

// usageItem is the API shape of one usage record.
type usageItem struct {
	ID               uint64    `json:"id"`
	Category         string    `json:"category"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	EstimatedCost    float64   `json:"estimated_cost"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// List returns the authenticated user's usage records, newest first.
func (h *UsageHandler) List(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var rows []models.Usage
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}

	items := make([]usageItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, usageItem{
			ID:               row.ID,
			Category:         row.Category,
			Model:            row.Model,
			PromptTokens:     row.PromptTokens,
			CompletionTokens: row.CompletionTokens,
			TotalTokens:      row.TotalTokens,
			EstimatedCost:    float64(row.CostMicros) / 1_000_000,
			Error:            row.Error,
			CreatedAt:        row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"usage": items})
}
