package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lessonloop/gateway/internal/auth"
	"github.com/lessonloop/gateway/internal/config"
	"github.com/lessonloop/gateway/internal/insights"
	"github.com/lessonloop/gateway/internal/prompt"
	"github.com/lessonloop/gateway/internal/ratelimit"
	"github.com/lessonloop/gateway/internal/relay"
	"github.com/lessonloop/gateway/internal/usage"
	log "github.com/sirupsen/logrus"
)

// UsageScheduler schedules usage records off the request path.
type UsageScheduler interface {
	Schedule(record usage.Record)
}

// ChatHandler orchestrates one streamed assistant exchange: validate,
// authorize, rate-check, build context, relay, account.
type ChatHandler struct {
	quota    *ratelimit.QuotaLimiter
	burst    *ratelimit.Manager
	builder  *prompt.Builder
	source   insights.Source
	upstream relay.Upstream
	tracker  UsageScheduler
	model    string
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(
	quota *ratelimit.QuotaLimiter,
	burst *ratelimit.Manager,
	builder *prompt.Builder,
	source insights.Source,
	upstream relay.Upstream,
	tracker UsageScheduler,
	model string,
) *ChatHandler {
	return &ChatHandler{
		quota:    quota,
		burst:    burst,
		builder:  builder,
		source:   source,
		upstream: upstream,
		tracker:  tracker,
		model:    model,
	}
}

// chatRequest defines the inbound chat payload.
type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []prompt.Turn `json:"conversation_history"`
	EnrichmentRequested bool          `json:"enrichment_requested"`
}

// Stream handles POST /v0/chat/stream.
//
// Quota is consumed only after validation, authorization, and the rate check
// have all passed, so a rejected request never burns a slot. Once the SSE
// headers are written, every failure is delivered in-band as a terminal
// event; the synchronous error path is closed.
func (h *ChatHandler) Stream(c *gin.Context) {
	var body chatRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	body.Message = strings.TrimSpace(body.Message)
	if body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	ctx := c.Request.Context()
	category := config.CategoryChat

	decision, errCheck := h.quota.Check(ctx, userID, category)
	if errCheck != nil || !decision.Allowed {
		// Persistence failures deny too: an unknown quota state must not
		// default to permissive for calls that cost money.
		rateLimited(c, decision)
		return
	}

	if burstResult, errBurst := h.burst.Allow(ctx, ratelimit.BurstKey(userID, category)); errBurst == nil && !burstResult.Allowed {
		rateLimited(c, ratelimit.Decision{Remaining: burstResult.Remaining, ResetAt: burstResult.Reset})
		return
	}

	// The request is going upstream from here; this is the point where
	// the quota slot is actually charged.
	if errRecord := h.quota.Record(ctx, userID, category); errRecord != nil {
		log.WithError(errRecord).Warn("chat: failed to record rate limit event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var records []insights.StudentInsight
	if body.EnrichmentRequested && h.source != nil {
		var errInsights error
		records, errInsights = h.source.TopPriority(ctx, userID, prompt.MaxInsightRecords)
		if errInsights != nil {
			// Enrichment is additive; a failed lookup degrades to an
			// unenriched prompt rather than failing the exchange.
			log.WithError(errInsights).Warn("chat: enrichment lookup failed")
			records = nil
		}
	}

	turns := h.builder.Build(records, body.ConversationHistory, body.Message)

	requestMetadata := map[string]any{
		"message_chars":        len(body.Message),
		"history_turns":        len(body.ConversationHistory),
		"enrichment_requested": body.EnrichmentRequested,
	}

	stream, errOpen := h.upstream.Open(ctx, h.model, turns)
	if errOpen != nil {
		log.WithError(errOpen).Error("chat: failed to open upstream stream")
		h.tracker.Schedule(usage.Record{
			UserID:          userID,
			Category:        category,
			Model:           h.model,
			RequestMetadata: requestMetadata,
			Err:             errOpen,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reach the assistant backend"})
		return
	}

	relay.WriteStreamHeaders(c.Writer)
	totals := relay.Run(c.Writer, stream)

	h.tracker.Schedule(usage.Record{
		UserID:           userID,
		Category:         category,
		Model:            h.model,
		PromptTokens:     relay.EstimatePromptTokens(turns),
		CompletionTokens: relay.EstimateTokens(totals.FullText),
		RequestMetadata:  requestMetadata,
		ResponseMetadata: map[string]any{
			"finish_reason":    totals.FinishReason,
			"completion_chars": len(totals.FullText),
		},
		Err: totals.Err,
	})
}

// rateLimited writes the throttling error body with retry-timing metadata.
func rateLimited(c *gin.Context, decision ratelimit.Decision) {
	resetAt := decision.ResetAt.UTC()
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":             "Rate limit exceeded. Try again after " + resetAt.Format(time.RFC3339) + ".",
		"rateLimitExceeded": true,
		"remaining":         decision.Remaining,
		"resetAt":           resetAt.Format(time.RFC3339),
	})
}
