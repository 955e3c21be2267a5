package viewsync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/fakeapi"
	"camtrap-cli/internal/render"
	"camtrap-cli/pkg/models"
)

func TestSetLiveTwiceKeepsOneSubscription(t *testing.T) {
	f := newFakeFetcher(sampleRecords()...)
	subs := &fakeSubscriber{}
	rec := &recorder{}
	s := newSync(t, f, Options{Renderers: []Renderer{rec}, Subscriber: subs})

	require.NoError(t, s.SetLive(context.Background(), true))
	require.NoError(t, s.SetLive(context.Background(), true))

	assert.Equal(t, 1, s.Subscriptions())
	assert.Equal(t, Live, s.State())
	require.Equal(t, 2, subs.opened())
	assert.True(t, subs.sub(0).closed.Load(), "previous channel is closed before the new one opens")

	// One notification means exactly one refresh
	subs.sub(1).send(t)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestSetLiveOffStopsRefreshes(t *testing.T) {
	f := newFakeFetcher(sampleRecords()...)
	subs := &fakeSubscriber{}
	rec := &recorder{}
	s := newSync(t, f, Options{Renderers: []Renderer{rec}, Subscriber: subs})

	require.NoError(t, s.SetLive(context.Background(), true))
	sub := subs.sub(0)
	sub.send(t)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.SetLive(context.Background(), false))
	assert.Equal(t, 0, s.Subscriptions())
	assert.Equal(t, Idle, s.State())
	assert.True(t, sub.closed.Load())

	select {
	case sub.events <- models.StreamEvent{Type: "update"}:
		t.Fatal("notification consumed after live updates were disabled")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, rec.count())

	// Disabling twice is harmless
	require.NoError(t, s.SetLive(context.Background(), false))
}

func TestLiveRefreshUsesLastFilter(t *testing.T) {
	f := newFakeFetcher(sampleRecords()...)
	subs := &fakeSubscriber{}
	rec := &recorder{}
	s := newSync(t, f, Options{Renderers: []Renderer{rec}, Subscriber: subs})

	_, err := s.Refresh(context.Background(), client.Filter{Species: "tapir"})
	require.NoError(t, err)
	require.NoError(t, s.SetLive(context.Background(), true))

	subs.sub(0).send(t)
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)

	snap := rec.last()
	require.Len(t, snap.Detections, 1)
	assert.Equal(t, "tapir", snap.Detections[0].Species)
}

func TestSetLiveWithoutSubscriber(t *testing.T) {
	s := newSync(t, newFakeFetcher(), Options{})
	require.ErrorIs(t, s.SetLive(context.Background(), true), ErrNoSubscriber)
	assert.Equal(t, Idle, s.State())
}

func TestSetLiveSubscribeFailure(t *testing.T) {
	subs := &fakeSubscriber{}
	subs.fail.Store(true)
	b := &banner{}
	s := newSync(t, newFakeFetcher(), Options{Subscriber: subs, Banner: b})

	err := s.SetLive(context.Background(), true)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 0, s.Subscriptions())
	assert.Contains(t, b.message(), "Live updates unavailable")
}

func TestLiveReconnectsAfterDrop(t *testing.T) {
	f := newFakeFetcher(sampleRecords()...)
	subs := &fakeSubscriber{}
	s := newSync(t, f, Options{Subscriber: subs, Reconnect: fastReconnect()})

	require.NoError(t, s.SetLive(context.Background(), true))
	calls := f.detCalls.Load()

	subs.fail.Store(true)
	subs.sub(0).drop(errBoom)
	require.Eventually(t, func() bool { return s.Subscriptions() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, Live, s.State(), "still live while retrying")

	subs.fail.Store(false)
	require.Eventually(t, func() bool { return s.Subscriptions() == 1 }, 2*time.Second, time.Millisecond)

	// Missed notifications are caught up with one refresh
	require.Eventually(t, func() bool { return f.detCalls.Load() > calls }, time.Second, time.Millisecond)

	subs.sub(1).send(t)
	require.NoError(t, s.SetLive(context.Background(), false))
	assert.Equal(t, 0, s.Subscriptions())
}

func TestLiveGivesUpAfterMaxElapsed(t *testing.T) {
	subs := &fakeSubscriber{}
	b := &banner{}
	policy := fastReconnect()
	policy.MaxElapsed = 30 * time.Millisecond
	s := newSync(t, newFakeFetcher(), Options{Subscriber: subs, Banner: b, Reconnect: policy})

	require.NoError(t, s.SetLive(context.Background(), true))
	subs.fail.Store(true)
	subs.sub(0).drop(errBoom)

	require.Eventually(t, func() bool { return s.State() == Idle }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, s.Subscriptions())
	assert.Contains(t, b.message(), "Live updates stopped")
}

func TestCloseStopsLive(t *testing.T) {
	subs := &fakeSubscriber{}
	s, err := New(newFakeFetcher(), Options{Subscriber: subs})
	require.NoError(t, err)

	require.NoError(t, s.SetLive(context.Background(), true))
	require.NoError(t, s.Close())

	assert.Equal(t, 0, s.Subscriptions())
	assert.True(t, subs.sub(0).closed.Load())
	assert.ErrorIs(t, s.SetLive(context.Background(), true), ErrClosed)
}

func sseSubscriber(api *client.CamtrapClient) Subscriber {
	return SubscriberFunc(func(ctx context.Context) (Subscription, error) {
		sub, err := api.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		return sub, nil
	})
}

func TestLiveAgainstServer(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.SetDetections(sampleRecords()[:1])

	api := client.New(client.ClientConfig{BaseURL: srv.URL})
	screen := render.NewScreen(5)
	s := newSync(t, api, Options{
		Renderers:  []Renderer{screen.KPI, screen.Map, screen.Charts, screen.Table},
		Banner:     screen.Banner,
		Subscriber: sseSubscriber(api),
		Reconnect:  fastReconnect(),
	})

	_, err := s.Refresh(context.Background(), client.Filter{})
	require.NoError(t, err)

	require.NoError(t, s.SetLive(context.Background(), true))
	require.NoError(t, s.SetLive(context.Background(), true))
	require.Eventually(t, func() bool { return srv.Streams() == 1 }, 2*time.Second, 5*time.Millisecond)

	srv.AddDetection(detection("tapir", "2024-05-03", "02:00:00", "2", 8.9, -79.6))
	require.Eventually(t, func() bool { return len(screen.Table.Rows()) == 2 }, 2*time.Second, 5*time.Millisecond)

	// Server restarts its stream: the client reconnects by itself
	opens := srv.StreamOpens()
	srv.DropStreams()
	require.Eventually(t, func() bool {
		return srv.StreamOpens() > opens && srv.Streams() == 1
	}, 3*time.Second, 5*time.Millisecond)

	srv.AddDetection(detection("jaguar", "2024-05-03", "03:00:00", "1", 8.95, -79.55))
	require.Eventually(t, func() bool { return len(screen.Table.Rows()) == 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.SetLive(context.Background(), false))
	require.Eventually(t, func() bool { return srv.Streams() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestLiveUnavailableServerStream(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.FailStream(http.StatusServiceUnavailable)

	api := client.New(client.ClientConfig{BaseURL: srv.URL})
	b := &banner{}
	s := newSync(t, api, Options{Banner: b, Subscriber: sseSubscriber(api)})

	require.Error(t, s.SetLive(context.Background(), true))
	assert.Equal(t, Idle, s.State())
	assert.Contains(t, b.message(), "Live updates unavailable")
}
