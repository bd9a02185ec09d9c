// Package prompt assembles the outbound message list for the upstream model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lessonloop/gateway/internal/insights"
)

// Roles used in conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MaxHistoryTurns caps how many trailing history turns are forwarded
// upstream. Older turns are dropped silently to bound token cost.
const MaxHistoryTurns = 10

// MaxInsightRecords caps how many enrichment records are formatted into the
// system turn.
const MaxInsightRecords = 10

// Builder assembles outbound turns from instructions, optional enrichment,
// and prior history.
type Builder struct {
	instructions string
}

// NewBuilder constructs a Builder with the given base system instructions.
func NewBuilder(instructions string) *Builder {
	return &Builder{instructions: instructions}
}

// Build produces the ordered outbound turn list.
//
// The ordering contract is exactly [system, ...truncated history, user]; the
// upstream provider depends on it.
func (b *Builder) Build(records []insights.StudentInsight, history []Turn, message string) []Turn {
	system := b.instructions
	if block := FormatInsights(records); block != "" {
		system = system + "\n\n" + block
	}

	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	turns := make([]Turn, 0, len(history)+2)
	turns = append(turns, Turn{Role: RoleSystem, Content: system})
	turns = append(turns, history...)
	turns = append(turns, Turn{Role: RoleUser, Content: message})
	return turns
}

// FormatInsights renders enrichment records into a compact textual block.
//
// Formatting is deterministic and total: absent free-text fields render
// "none" instead of being omitted, and at most MaxInsightRecords records are
// included.
func FormatInsights(records []insights.StudentInsight) string {
	if len(records) == 0 {
		return ""
	}
	if len(records) > MaxInsightRecords {
		records = records[:MaxInsightRecords]
	}

	var sb strings.Builder
	sb.WriteString("Current student snapshot (highest priority first):")
	for _, record := range records {
		name := strings.TrimSpace(record.Name)
		if name == "" {
			name = "unnamed student"
		}
		sb.WriteString(fmt.Sprintf(
			"\n- %s [%s]: attendance %.0f%%, average grade %.0f%%, missing assignments %d; concerns: %s; strengths: %s",
			name,
			record.PriorityLabel(),
			record.AttendanceRate*100,
			record.AverageGrade,
			record.MissingAssignments,
			textOrNone(record.Concerns),
			textOrNone(record.Strengths),
		))
	}
	return sb.String()
}

func textOrNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "none"
	}
	return s
}
