// Package viewsync keeps every dashboard view consistent with the server.
//
// A Synchronizer pulls detection snapshots on demand, on live notifications
// and on a fixed-interval ticker, and fans each snapshot out to independent
// renderers. It owns the only mutable session state: the live subscription.
//
// Guarantees:
//   - refreshes never overlap, and a result older than the last applied one
//     is discarded instead of overwriting newer views
//   - a failed refresh leaves every view untouched and shows one banner message
//   - at most one live subscription is open; disabling live closes it and
//     waits until no further refresh can be triggered by it
//   - every background task is stopped by its Disposer or by Close
package viewsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/logging"
	"camtrap-cli/pkg/models"
)

var (
	// ErrSuperseded is returned by Refresh when a newer refresh was applied first.
	ErrSuperseded = errors.New("refresh superseded by a newer one")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("synchronizer closed")
	// ErrNoSubscriber is returned by SetLive(true) when no live transport is configured.
	ErrNoSubscriber = errors.New("no live channel configured")
)

type Options struct {
	Renderers  []Renderer
	Ticker     LatestRenderer
	Banner     ErrorIndicator
	Subscriber Subscriber
	Reconnect  ReconnectPolicy
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	// OnChange runs after any view or the banner changed, e.g. to redraw a
	// terminal. It may be called from several goroutines at once.
	OnChange func()
}

type Synchronizer struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
	metrics *metrics

	// base context of background tasks, cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	refreshMu sync.Mutex
	seq       atomic.Uint64
	applied   uint64 // guarded by refreshMu

	filterMu sync.Mutex
	filter   client.Filter

	liveMu sync.Mutex // serializes SetLive
	live   atomic.Pointer[liveLoop]
	open   atomic.Int32

	tasksMu sync.Mutex
	tasks   map[int]Disposer
	nextID  int
	closed  bool
}

// New builds a synchronizer. Construct one per session and Close it on teardown.
func New(fetcher Fetcher, opts Options) (*Synchronizer, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	def := DefaultReconnectPolicy()
	if opts.Reconnect.InitialInterval <= 0 {
		opts.Reconnect.InitialInterval = def.InitialInterval
	}
	if opts.Reconnect.MaxInterval <= 0 {
		opts.Reconnect.MaxInterval = def.MaxInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		fetcher: fetcher,
		opts:    opts,
		logger:  logging.Module(opts.Logger, "viewsync"),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		tasks:   map[int]Disposer{},
	}, nil
}

// Refresh fetches detections matching f and the summary counters, then
// replaces every view from that snapshot.
//
// Both fetches run concurrently and both finish before any view changes. If
// the detection fetch fails nothing is redrawn, the banner shows the error and
// the error is returned. A failed summary fetch only leaves the KPIs stale.
func (s *Synchronizer) Refresh(ctx context.Context, f client.Filter) (*models.Snapshot, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	seq := s.seq.Add(1)
	s.setFilter(f)

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if seq <= s.applied {
		s.metrics.refreshes.WithLabelValues("stale").Inc()
		return nil, ErrSuperseded
	}

	start := time.Now()
	var (
		records []models.Detection
		summary models.Summary
		sumErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := s.fetcher.GetDetections(gctx, f)
		if err != nil {
			return err
		}
		// Fetchers may filter by day only
		records = f.Apply(fetched)
		return nil
	})
	g.Go(func() error {
		summary, sumErr = s.fetcher.GetSummary(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller, not a server failure
			return nil, ctx.Err()
		}
		s.metrics.refreshes.WithLabelValues("failed").Inc()
		s.logger.Warn("refresh failed, keeping previous views", "seq", seq, "error", err)
		s.showError("Error loading detections: " + err.Error())
		return nil, err
	}

	// Anything newer applied while this one was in flight wins
	if seq <= s.applied {
		s.metrics.refreshes.WithLabelValues("stale").Inc()
		return nil, ErrSuperseded
	}

	snap := &models.Snapshot{
		Seq:        seq,
		Detections: records,
		FetchedAt:  time.Now(),
	}
	if sumErr != nil {
		s.logger.Debug("summary fetch failed, KPIs left stale", "seq", seq, "error", sumErr)
	} else {
		snap.Summary = &summary
	}

	for _, r := range s.opts.Renderers {
		r.Render(snap)
	}
	s.applied = seq
	if s.opts.Banner != nil {
		s.opts.Banner.Dismiss()
	}

	s.metrics.refreshes.WithLabelValues("applied").Inc()
	s.metrics.refreshDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("snapshot applied", "seq", seq, "records", len(records), "filter", f.Params())
	s.changed()
	return snap, nil
}

// Filter returns the filter of the most recent Refresh call.
func (s *Synchronizer) Filter() client.Filter {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	return s.filter
}

func (s *Synchronizer) setFilter(f client.Filter) {
	s.filterMu.Lock()
	s.filter = f
	s.filterMu.Unlock()
}

// DismissError hides the banner.
func (s *Synchronizer) DismissError() {
	if s.opts.Banner != nil {
		s.opts.Banner.Dismiss()
		s.changed()
	}
}

// PollLastN fetches the latest records into the ticker every interval,
// starting immediately. It runs until the returned Disposer is called, ctx is
// cancelled or the synchronizer is closed. A failed poll keeps the previous rows.
func (s *Synchronizer) PollLastN(ctx context.Context, interval time.Duration) (Disposer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	pctx, cancel := context.WithCancel(ctx)
	stopOnClose := context.AfterFunc(s.ctx, cancel)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			s.pollLatest(pctx)
			select {
			case <-ticker.C:
			case <-pctx.Done():
				return
			}
		}
	}()

	id := s.nextID
	s.nextID++

	var once sync.Once
	dispose := func() {
		once.Do(func() {
			stopOnClose()
			cancel()
			<-done
			s.tasksMu.Lock()
			delete(s.tasks, id)
			s.tasksMu.Unlock()
		})
	}
	s.tasks[id] = dispose
	s.logger.Debug("latest-records poller started", "interval", interval)
	return dispose, nil
}

func (s *Synchronizer) pollLatest(ctx context.Context) {
	records, err := s.fetcher.GetLatest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.metrics.polls.WithLabelValues("failed").Inc()
		s.logger.Warn("latest records poll failed", "error", err)
		s.showError("Error loading latest records: " + err.Error())
		return
	}
	s.metrics.polls.WithLabelValues("applied").Inc()
	if s.opts.Ticker != nil {
		s.opts.Ticker.RenderLatest(records)
	}
	s.changed()
}

// Close stops live updates and every poller. The synchronizer cannot be reused.
func (s *Synchronizer) Close() error {
	err := s.SetLive(s.ctx, false)

	s.tasksMu.Lock()
	s.closed = true
	tasks := make([]Disposer, 0, len(s.tasks))
	for _, d := range s.tasks {
		tasks = append(tasks, d)
	}
	s.tasksMu.Unlock()

	// Disposers take tasksMu themselves
	for _, d := range tasks {
		d()
	}
	s.cancel()
	return err
}

func (s *Synchronizer) showError(msg string) {
	if s.opts.Banner != nil {
		s.opts.Banner.Show(msg)
	}
	s.changed()
}

func (s *Synchronizer) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}
