package relay

import "github.com/lessonloop/gateway/internal/prompt"

// EstimateTokens approximates the token count of text as len/4.
//
// This is a deliberate simplification: exact tokenization would require
// bundling the provider's tokenizer, and the estimate only feeds advisory
// cost accounting. Callers needing billing-grade precision must not treat
// the result as ground truth. Kept as a named function so it can be swapped
// for a real tokenizer without touching the usage tracker contract.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimatePromptTokens approximates the token count of an outbound turn list.
func EstimatePromptTokens(turns []prompt.Turn) int {
	total := 0
	for _, turn := range turns {
		total += len(turn.Content)
	}
	return total / 4
}
