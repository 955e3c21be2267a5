package viewsync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// liveLoop pumps one subscription (and its reconnections) into refreshes.
type liveLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
	ended  atomic.Bool // gave up reconnecting
}

func (l *liveLoop) stop() {
	l.cancel()
	<-l.done
}

// SetLive turns live updates on or off.
//
// Enabling always closes the current subscription first and then opens
// exactly one new one, so calling it twice never doubles the handlers. Every
// notification triggers a full Refresh with the last filter. Disabling closes
// the subscription and returns only after its loop has exited.
func (s *Synchronizer) SetLive(ctx context.Context, enabled bool) error {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if l := s.live.Swap(nil); l != nil {
		l.stop()
		s.logger.Info("live updates stopped")
	}
	if !enabled {
		return nil
	}

	if s.ctx.Err() != nil {
		return ErrClosed
	}
	if s.opts.Subscriber == nil {
		return ErrNoSubscriber
	}

	sub, err := s.opts.Subscriber.Subscribe(ctx)
	if err != nil {
		s.showError("Live updates unavailable: " + err.Error())
		return fmt.Errorf("failed to start live updates: %w", err)
	}
	s.opened()

	lctx, cancel := context.WithCancel(s.ctx)
	l := &liveLoop{cancel: cancel, done: make(chan struct{})}
	s.live.Store(l)
	go s.runLive(lctx, l, sub)

	s.logger.Info("live updates started")
	return nil
}

// State reports whether a live channel is active. It does not block on SetLive.
func (s *Synchronizer) State() State {
	l := s.live.Load()
	if l == nil || l.ended.Load() {
		return Idle
	}
	return Live
}

// Subscriptions returns the number of currently open live channels (0 or 1).
func (s *Synchronizer) Subscriptions() int {
	return int(s.open.Load())
}

func (s *Synchronizer) opened() {
	s.open.Add(1)
	s.metrics.liveSubscriptions.Inc()
}

func (s *Synchronizer) closeSub(sub Subscription) {
	_ = sub.Close()
	s.open.Add(-1)
	s.metrics.liveSubscriptions.Dec()
}

func (s *Synchronizer) runLive(ctx context.Context, l *liveLoop, sub Subscription) {
	defer close(l.done)

	for {
		cause := s.pump(ctx, sub)
		s.closeSub(sub)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("live channel dropped, reconnecting", "error", cause)

		next, err := s.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.ended.Store(true)
				s.logger.Error("live updates stopped after reconnect attempts", "error", err)
				s.showError("Live updates stopped: " + err.Error())
			}
			return
		}
		sub = next

		// Notifications sent while disconnected are lost, so catch up once
		s.liveRefresh(ctx)
	}
}

// pump turns notifications into refreshes until the channel ends or ctx is done.
func (s *Synchronizer) pump(ctx context.Context, sub Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.Events():
			if !ok {
				return endCause(sub)
			}
			s.metrics.notifications.Inc()
			s.liveRefresh(ctx)
		case <-sub.Done():
			return endCause(sub)
		}
	}
}

func (s *Synchronizer) liveRefresh(ctx context.Context) {
	// Failures are already on the banner; superseded results are expected
	_, _ = s.Refresh(ctx, s.Filter())
}

func endCause(sub Subscription) error {
	if err := sub.Err(); err != nil {
		return err
	}
	return errors.New("channel closed")
}

// reconnect reopens the channel with exponential backoff.
func (s *Synchronizer) reconnect(ctx context.Context) (Subscription, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.Reconnect.InitialInterval
	b.MaxInterval = s.opts.Reconnect.MaxInterval
	b.MaxElapsedTime = s.opts.Reconnect.MaxElapsed
	b.Reset()

	var sub Subscription
	op := func() error {
		s.metrics.reconnects.Inc()
		next, err := s.opts.Subscriber.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			s.logger.Debug("live reconnect attempt failed", "error", err)
			return err
		}
		sub = next
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Info("live channel unavailable, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	s.opened()
	s.logger.Info("live channel reconnected")
	return sub, nil
}
