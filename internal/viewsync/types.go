package viewsync

import (
	"context"
	"time"

	"camtrap-cli/internal/client"
	"camtrap-cli/pkg/models"
)

// Fetcher is the slice of the server API the synchronizer pulls from.
type Fetcher interface {
	GetDetections(ctx context.Context, f client.Filter) ([]models.Detection, error)
	GetSummary(ctx context.Context) (models.Summary, error)
	GetLatest(ctx context.Context) ([]models.Detection, error)
}

// Renderer is one view redrawn from every applied snapshot.
type Renderer interface {
	Name() string
	Render(snap *models.Snapshot)
}

// LatestRenderer receives the last-N records from PollLastN.
type LatestRenderer interface {
	RenderLatest(records []models.Detection)
}

// ErrorIndicator is the inline error banner. Show replaces any visible message.
type ErrorIndicator interface {
	Show(msg string)
	Dismiss()
}

// Subscription is one open live notification channel.
// Done is closed when the channel ends for any reason.
type Subscription interface {
	Events() <-chan models.StreamEvent
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Subscriber opens live notification channels.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context) (Subscription, error)

func (f SubscriberFunc) Subscribe(ctx context.Context) (Subscription, error) {
	return f(ctx)
}

// State is the live toggle.
type State int

const (
	Idle State = iota
	Live
)

func (s State) String() string {
	if s == Live {
		return "live"
	}
	return "idle"
}

// ReconnectPolicy controls how a dropped live channel is reopened.
type ReconnectPolicy struct {
	InitialInterval time.Duration // default 1s
	MaxInterval     time.Duration // default 30s
	// MaxElapsed gives up after this long without a connection; 0 retries forever.
	MaxElapsed time.Duration
}

// DefaultReconnectPolicy doubles from 1s up to 30s and never gives up.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Disposer stops a background task and waits for it to exit. Safe to call more than once.
type Disposer func()
