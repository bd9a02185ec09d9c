package relay

import (
	"context"
	"io"
	"time"

	"github.com/lessonloop/gateway/internal/prompt"
)

// MockUpstream replays a canned stream without calling any provider. It
// backs the development mock mode and test fixtures.
type MockUpstream struct {
	// Increments are replayed in order; a zero-value tail behaves like a
	// provider heartbeat.
	Increments []Increment
	// OpenErr, when set, fails the call synchronously.
	OpenErr error
	// RecvErr, when set, is returned after the scripted increments are
	// exhausted instead of io.EOF.
	RecvErr error
	// Delay paces Recv to mimic network latency.
	Delay time.Duration
}

// DefaultMockUpstream returns the canned stream used by mock mode.
func DefaultMockUpstream() *MockUpstream {
	return &MockUpstream{
		Increments: []Increment{
			{Content: "This is a mock reply from the development gateway. "},
			{Content: "Configure `upstream.api-key` to talk to a real model."},
			{FinishReason: "stop"},
		},
		Delay: 50 * time.Millisecond,
	}
}

// Open starts replaying the scripted stream.
func (u *MockUpstream) Open(ctx context.Context, _ string, _ []prompt.Turn) (Stream, error) {
	if u.OpenErr != nil {
		return nil, u.OpenErr
	}
	return &mockStream{upstream: u, ctx: ctx}, nil
}

type mockStream struct {
	upstream *MockUpstream
	ctx      context.Context
	pos      int
	closed   bool
}

// Recv returns the next scripted increment.
func (s *mockStream) Recv() (Increment, error) {
	if s.closed {
		return Increment{}, io.EOF
	}
	if errCtx := s.ctx.Err(); errCtx != nil {
		return Increment{}, errCtx
	}
	if s.upstream.Delay > 0 {
		select {
		case <-time.After(s.upstream.Delay):
		case <-s.ctx.Done():
			return Increment{}, s.ctx.Err()
		}
	}
	if s.pos >= len(s.upstream.Increments) {
		if s.upstream.RecvErr != nil {
			return Increment{}, s.upstream.RecvErr
		}
		return Increment{}, io.EOF
	}
	increment := s.upstream.Increments[s.pos]
	s.pos++
	return increment, nil
}

// Close marks the stream drained.
func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

var _ Upstream = (*MockUpstream)(nil)
