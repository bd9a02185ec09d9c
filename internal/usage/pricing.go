// Package usage records per-exchange token and cost estimates.
package usage

import (
	"math"
	"strings"
)

// ModelPrice holds USD-per-million-token rates for one model.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Pricing maps model identifiers to their static price entries.
type Pricing map[string]ModelPrice

// DefaultPricing returns the built-in price table. Entries are advisory
// estimates, not a billing source of truth.
func DefaultPricing() Pricing {
	return Pricing{
		"gpt-4o":        {InputPerMillion: 2.50, OutputPerMillion: 10.00},
		"gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"gpt-4.1":       {InputPerMillion: 2.00, OutputPerMillion: 8.00},
		"gpt-4.1-mini":  {InputPerMillion: 0.40, OutputPerMillion: 1.60},
		"gpt-4.1-nano":  {InputPerMillion: 0.10, OutputPerMillion: 0.40},
		"o3-mini":       {InputPerMillion: 1.10, OutputPerMillion: 4.40},
		"o4-mini":       {InputPerMillion: 1.10, OutputPerMillion: 4.40},
		"gpt-3.5-turbo": {InputPerMillion: 0.50, OutputPerMillion: 1.50},
	}
}

// CostMicros computes the estimated cost of an exchange in micro-USD.
//
// Unknown models cost zero rather than erroring; billing estimation is
// advisory and must never fail a request.
func (p Pricing) CostMicros(model string, promptTokens, completionTokens int) int64 {
	price, ok := p[strings.TrimSpace(model)]
	if !ok {
		return 0
	}
	dollars := float64(promptTokens)/1_000_000*price.InputPerMillion +
		float64(completionTokens)/1_000_000*price.OutputPerMillion
	return int64(math.Round(dollars * 1_000_000))
}

// Merge overlays override entries onto the table, returning a new table.
func (p Pricing) Merge(overrides Pricing) Pricing {
	merged := make(Pricing, len(p)+len(overrides))
	for model, price := range p {
		merged[model] = price
	}
	for model, price := range overrides {
		merged[model] = price
	}
	return merged
}
