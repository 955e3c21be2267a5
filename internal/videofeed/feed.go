// Package videofeed reads a camera's MJPEG stream frame by frame. A failed
// or dropped stream is requested again after a fixed delay, indefinitely,
// until the context is cancelled.
package videofeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/logging"
)

const (
	DefaultRetryDelay = 2 * time.Second
	maxFrameSize      = 8 << 20
)

// Opener starts the stream of one camera.
type Opener interface {
	OpenVideoFeed(ctx context.Context, cameraID string) (*client.VideoFeed, error)
}

// Sink receives every decoded frame. Returning an error stops the feed.
type Sink interface {
	Frame(cameraID string, jpeg []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cameraID string, jpeg []byte) error

func (f SinkFunc) Frame(cameraID string, jpeg []byte) error { return f(cameraID, jpeg) }

type Feed struct {
	opener     Opener
	cameraID   string
	sink       Sink
	retryDelay time.Duration
	maxFrame   int64
	logger     *slog.Logger

	// OnStatus, when set, is told when the stream connects and when it fails.
	OnStatus func(connected bool, err error)
}

func New(opener Opener, cameraID string, sink Sink, retryDelay time.Duration, logger *slog.Logger) *Feed {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Feed{
		opener:     opener,
		cameraID:   cameraID,
		sink:       sink,
		retryDelay: retryDelay,
		maxFrame:   maxFrameSize,
		logger:     logging.Module(logger, "videofeed").With("camera", cameraID),
	}
}

// errSink marks errors that came from the sink rather than the stream.
type errSink struct{ err error }

func (e errSink) Error() string { return e.err.Error() }
func (e errSink) Unwrap() error { return e.err }

// Run streams frames into the sink until ctx is cancelled or the sink fails.
// Stream errors never end Run; they are retried after the fixed delay.
func (f *Feed) Run(ctx context.Context) error {
	attempt := 0
	for {
		attempt++
		err := f.stream(ctx)

		var se errSink
		if errors.As(err, &se) {
			return se.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.status(false, err)
		f.logger.Warn("video feed interrupted, retrying", "error", err, "attempt", attempt, "delay", f.retryDelay)

		timer := time.NewTimer(f.retryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (f *Feed) stream(ctx context.Context) error {
	feed, err := f.opener.OpenVideoFeed(ctx, f.cameraID)
	if err != nil {
		return err
	}
	defer feed.Close()

	// Unblock the part reader when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { feed.Close() })
	defer stop()

	f.status(true, nil)
	f.logger.Info("video feed connected")

	mr := multipart.NewReader(feed.Body, feed.Boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("video feed ended")
			}
			return fmt.Errorf("read video feed: %w", err)
		}

		// One byte past the limit tells an oversized frame from one that fits exactly
		frame, err := io.ReadAll(io.LimitReader(part, f.maxFrame+1))
		part.Close()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if int64(len(frame)) > f.maxFrame {
			f.logger.Warn("dropping oversized frame", "limit", f.maxFrame)
			continue
		}
		if len(frame) == 0 {
			continue
		}
		if err := f.sink.Frame(f.cameraID, frame); err != nil {
			return errSink{err}
		}
	}
}

func (f *Feed) status(connected bool, err error) {
	if f.OnStatus != nil {
		f.OnStatus(connected, err)
	}
}
