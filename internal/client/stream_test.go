package client

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camtrap-cli/internal/fakeapi"
	"camtrap-cli/pkg/models"
)

func collectEvents(t *testing.T, body string) []models.StreamEvent {
	t.Helper()
	var got []models.StreamEvent
	err := readEvents(strings.NewReader(body), func(ev models.StreamEvent) bool {
		got = append(got, ev)
		return true
	})
	require.NoError(t, err)
	return got
}

func TestReadEvents(t *testing.T) {
	body := ": keep-alive\n\n" +
		"data: {\"type\":\"update\"}\n\n" +
		"id: 7\nretry: 1000\ndata: {\"type\":\"update\"}\n\n" +
		"data: plain text\n\n" +
		"data: {\"type\":\n" +
		"data: \"multi\"}\n\n"

	got := collectEvents(t, body)
	require.Len(t, got, 4)
	assert.Equal(t, "update", got[0].Type)
	assert.Equal(t, "update", got[1].Type)
	assert.Equal(t, "message", got[2].Type, "non-JSON payloads still count as a notification")
	assert.Equal(t, "multi", got[3].Type)
	assert.JSONEq(t, `{"type":"update"}`, string(got[0].Raw))
}

func TestReadEventsFlushesTrailingEvent(t *testing.T) {
	got := collectEvents(t, "data: {\"type\":\"update\"}")
	require.Len(t, got, 1)
}

func TestReadEventsStopsWhenEmitDeclines(t *testing.T) {
	calls := 0
	err := readEvents(strings.NewReader("data: a\n\ndata: b\n\n"), func(models.StreamEvent) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSubscribeReceivesNotifications(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	c := New(ClientConfig{BaseURL: srv.URL})

	sub, err := c.Subscribe(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Streams() == 1 }, 2*time.Second, 5*time.Millisecond)

	srv.Notify()
	select {
	case ev := <-sub.Events():
		assert.Equal(t, "update", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Err(), "closing is not a failure")
	require.Eventually(t, func() bool { return srv.Streams() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestSubscribeServerDrop(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	c := New(ClientConfig{BaseURL: srv.URL})

	sub, err := c.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()
	require.Eventually(t, func() bool { return srv.Streams() == 1 }, 2*time.Second, 5*time.Millisecond)

	srv.DropStreams()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	assert.ErrorIs(t, sub.Err(), ErrStreamClosed)

	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestSubscribeRejected(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.FailStream(http.StatusServiceUnavailable)
	c := New(ClientConfig{BaseURL: srv.URL})

	_, err := c.Subscribe(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestSubscribeEndsWithContext(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	c := New(ClientConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription outlived its context")
	}
	assert.NoError(t, sub.Err())
}

func TestGetCapture(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.SetCapture("2024-05-01/jaguar.jpg", []byte("\xff\xd8jpeg"))
	c := New(ClientConfig{BaseURL: srv.URL})

	data, err := c.GetCapture(context.Background(), "/2024-05-01/jaguar.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xd8jpeg"), data)

	_, err = c.GetCapture(context.Background(), "missing.jpg")
	assert.True(t, IsNotFound(err))

	_, err = c.GetCapture(context.Background(), "")
	assert.Error(t, err)
}

func TestOpenVideoFeed(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.SetFrames([]byte("frame-1"), []byte("frame-2"))
	c := New(ClientConfig{BaseURL: srv.URL})

	feed, err := c.OpenVideoFeed(context.Background(), "1")
	require.NoError(t, err)
	defer feed.Close()
	assert.Equal(t, "frame", feed.Boundary)

	mr := multipart.NewReader(feed.Body, feed.Boundary)
	var frames []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		frames = append(frames, string(b))
	}
	assert.Equal(t, []string{"frame-1", "frame-2"}, frames)
}

func TestOpenVideoFeedUnavailable(t *testing.T) {
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.FailFeed(http.StatusNotFound)
	c := New(ClientConfig{BaseURL: srv.URL})

	_, err := c.OpenVideoFeed(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
