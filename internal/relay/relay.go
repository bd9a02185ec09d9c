package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Totals carries the accumulated outcome of one relayed exchange.
type Totals struct {
	FullText     string
	FinishReason string
	// Err is non-nil when the exchange ended abnormally: an upstream
	// failure after streaming began, or a client disconnect.
	Err error
}

type contentEvent struct {
	Content string `json:"content"`
}

type doneEvent struct {
	Done         bool   `json:"done"`
	FinishReason string `json:"finishReason"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// Run consumes the upstream stream and frames it onto w as server-sent
// events.
//
// Output events are emitted strictly in upstream arrival order, and exactly
// one terminal event (done or error) closes the exchange. Once streaming has
// begun no error can escape to the synchronous response path, so Run never
// returns an error: failures are folded into the terminal event and reported
// via Totals for usage accounting. Partial content already written is never
// retracted.
func Run(w http.ResponseWriter, stream Stream) Totals {
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for {
		increment, errRecv := stream.Recv()
		if errRecv != nil {
			if errors.Is(errRecv, io.EOF) {
				// Provider closed without an explicit marker.
				writeDone(w, "stop")
				return Totals{FullText: full.String(), FinishReason: "stop"}
			}
			log.WithError(errRecv).Warn("relay: upstream stream failed mid-flight")
			writeErrorEvent(w, fmt.Sprintf("upstream stream failed: %v", errRecv))
			return Totals{FullText: full.String(), Err: errRecv}
		}

		if increment.Content != "" {
			full.WriteString(increment.Content)
			if errWrite := writeContent(w, increment.Content); errWrite != nil {
				// Client is gone; drain no further, keep the partial
				// totals for accounting.
				return Totals{FullText: full.String(), Err: fmt.Errorf("client write: %w", errWrite)}
			}
		}

		if increment.FinishReason != "" {
			writeDone(w, increment.FinishReason)
			return Totals{FullText: full.String(), FinishReason: increment.FinishReason}
		}
	}
}

// WriteStreamHeaders commits the response to the SSE path.
func WriteStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeContent(w http.ResponseWriter, text string) error {
	return writeEvent(w, contentEvent{Content: text})
}

func writeDone(w http.ResponseWriter, reason string) {
	_ = writeEvent(w, doneEvent{Done: true, FinishReason: reason})
}

func writeErrorEvent(w http.ResponseWriter, message string) {
	_ = writeEvent(w, errorEvent{Error: message})
}

func writeEvent(w http.ResponseWriter, payload any) error {
	data, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return errMarshal
	}
	if _, errWrite := fmt.Fprintf(w, "data: %s\n\n", data); errWrite != nil {
		return errWrite
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
