package usage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lessonloop/gateway/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record carries the final totals of one exchange.
type Record struct {
	UserID           string
	Category         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	RequestMetadata  map[string]any
	ResponseMetadata map[string]any
	// Err marks the exchange as failed. Failed exchanges persist with the
	// error message and zeroed token/cost fields, keeping failed attempts
	// distinct from silently dropped ones.
	Err error
}

// Tracker persists usage records off the request path, best-effort.
type Tracker struct {
	db      *gorm.DB
	pricing Pricing
	wg      sync.WaitGroup
}

// NewTracker constructs a Tracker.
func NewTracker(db *gorm.DB, pricing Pricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Tracker{db: db, pricing: pricing}
}

// Pricing returns the active price table.
func (t *Tracker) Pricing() Pricing { return t.pricing }

// Schedule writes the record on a detached goroutine. The caller must not
// wait on it: the client-facing stream closes independently of this write,
// and its failure can never propagate to the relay.
func (t *Tracker) Schedule(record Record) {
	if t == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("usage: tracker panicked")
			}
		}()
		t.write(record)
	}()
}

// Drain blocks until all scheduled writes complete. Called at shutdown so
// detached writes are not silently abandoned.
func (t *Tracker) Drain() {
	if t == nil {
		return
	}
	t.wg.Wait()
}

// write persists one usage row with its own timeout, detached from any
// request context that may already be cancelled.
func (t *Tracker) write(record Record) {
	if t.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := models.Usage{
		UserID:           record.UserID,
		Category:         record.Category,
		Model:            record.Model,
		RequestMetadata:  marshalMetadata(record.RequestMetadata),
		ResponseMetadata: marshalMetadata(record.ResponseMetadata),
		CreatedAt:        time.Now().UTC(),
	}
	if record.Err != nil {
		row.Error = record.Err.Error()
	} else {
		row.PromptTokens = record.PromptTokens
		row.CompletionTokens = record.CompletionTokens
		row.TotalTokens = record.PromptTokens + record.CompletionTokens
		row.CostMicros = t.pricing.CostMicros(record.Model, record.PromptTokens, record.CompletionTokens)
	}

	if errCreate := t.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithFields(log.Fields{
			"user_id":  record.UserID,
			"category": record.Category,
			"model":    record.Model,
		}).Warn("usage: failed to persist record")
	}
}

func marshalMetadata(metadata map[string]any) datatypes.JSON {
	if len(metadata) == 0 {
		return nil
	}
	payload, errMarshal := json.Marshal(metadata)
	if errMarshal != nil {
		return nil
	}
	return datatypes.JSON(payload)
}
