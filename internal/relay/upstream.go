// Package relay drives an upstream token stream and frames it as
// server-sent events for the client.
package relay

import (
	"context"

	"github.com/lessonloop/gateway/internal/prompt"
)

// Increment is one event from the upstream completion stream. Either
// Content carries a text delta or FinishReason signals end of stream;
// heartbeats carry neither.
type Increment struct {
	Content      string
	FinishReason string
}

// Stream is a cancellable sequence of upstream increments.
type Stream interface {
	// Recv blocks for the next increment. It returns io.EOF when the
	// provider closes the stream without an explicit finish marker.
	Recv() (Increment, error)
	// Close cancels the upstream subscription. Safe to call after Recv
	// has returned an error.
	Close() error
}

// Upstream opens streaming completion calls.
type Upstream interface {
	// Open starts a streaming call. Synchronous failures (network, auth,
	// invalid request) are returned here and never become a stream.
	Open(ctx context.Context, model string, turns []prompt.Turn) (Stream, error)
}
