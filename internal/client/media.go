package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
)

// GetCapture downloads a saved capture image. path is the detection's Image field.
func (c *CamtrapClient) GetCapture(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return nil, errors.New("capture path is empty")
	}

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "image/*").
		Get("/captures/" + path)

	if err := checkResponse("get capture "+path, resp, err); err != nil {
		return nil, err
	}

	if len(resp.Body()) == 0 {
		return nil, errors.New("response body is empty")
	}
	return resp.Body(), nil
}

// VideoFeed is an open MJPEG stream. Close releases the connection.
type VideoFeed struct {
	Body     io.ReadCloser
	Boundary string
}

func (f *VideoFeed) Close() error {
	return f.Body.Close()
}

// OpenVideoFeed starts the multipart/x-mixed-replace stream of one camera.
// The stream runs until ctx is cancelled or the server drops it.
func (c *CamtrapClient) OpenVideoFeed(ctx context.Context, cameraID string) (*VideoFeed, error) {
	resp, err := c.Stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetPathParam("id", cameraID).
		Get("/video_feed_cam/{id}")

	if err != nil {
		return nil, fmt.Errorf("failed to open video feed for camera %s: %w", cameraID, err)
	}

	body := resp.RawBody()
	if resp.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		body.Close()
		return nil, fmt.Errorf("failed to open video feed for camera %s: %w", cameraID, newAPIError(resp.StatusCode(), msg))
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		body.Close()
		return nil, fmt.Errorf("camera %s: unexpected video feed content type %q", cameraID, resp.Header().Get("Content-Type"))
	}

	return &VideoFeed{Body: body, Boundary: params["boundary"]}, nil
}
