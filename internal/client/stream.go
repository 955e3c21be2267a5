package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"camtrap-cli/pkg/models"
)

// ErrStreamClosed is reported by Subscription.Err when the server ended the stream.
var ErrStreamClosed = errors.New("live stream closed by server")

// Subscription is one open SSE connection to /api/stream.
// Events is closed when the stream ends; Err then tells why.
type Subscription struct {
	ID string

	events chan models.StreamEvent
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Subscribe opens the live notification channel. The returned subscription
// owns one goroutine that exits on Close, on ctx cancellation or when the
// server drops the connection.
func (c *CamtrapClient) Subscribe(ctx context.Context) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	resp, err := c.Stream.R().
		SetContext(subCtx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		Get("/api/stream")

	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open live stream: %w", err)
	}

	body := resp.RawBody()
	if resp.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		body.Close()
		cancel()
		return nil, fmt.Errorf("failed to open live stream: %w", newAPIError(resp.StatusCode(), msg))
	}

	sub := &Subscription{
		ID:     uuid.NewString(),
		events: make(chan models.StreamEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.pump(subCtx, body)
	return sub, nil
}

// Events delivers one value per server notification.
func (s *Subscription) Events() <-chan models.StreamEvent {
	return s.events
}

// Done is closed once the reader goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns why the stream ended: nil after Close, ErrStreamClosed on EOF,
// the read error otherwise.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the stream and waits for the reader goroutine to exit.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Subscription) pump(ctx context.Context, body io.ReadCloser) {
	defer close(s.done)
	defer close(s.events)
	defer body.Close()

	// Closing the body unblocks the scanner when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	err := readEvents(body, func(ev models.StreamEvent) bool {
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	})

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = ErrStreamClosed
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// readEvents parses a text/event-stream body and calls emit once per event.
// Only data lines matter to this client; ids, retries and comments are skipped.
func readEvents(r io.Reader, emit func(models.StreamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	var data bytes.Buffer

	flush := func() bool {
		if data.Len() == 0 {
			return true
		}
		ev := parseEvent(bytes.TrimSuffix(data.Bytes(), []byte("\n")))
		data.Reset()
		return emit(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !flush() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			data.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

func parseEvent(payload []byte) models.StreamEvent {
	raw := append(json.RawMessage(nil), payload...)
	ev := models.StreamEvent{Raw: raw}
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Type == "" {
		ev.Type = "message"
	}
	return ev
}
