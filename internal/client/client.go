package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "camtrap-cli"

	// Error bodies longer than this are cut before they reach the banner.
	maxErrorMessage = 200
)

// ErrCameraNotFound is returned when the server does not know the camera id.
var ErrCameraNotFound = errors.New("camera not found")

// CamtrapClient talks to the camera-trap monitoring server.
// HTTP carries ordinary request/response calls; Stream has no overall timeout
// and is used for the SSE channel and the video feed.
type CamtrapClient struct {
	HTTP   *resty.Client
	Stream *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func New(cfg ClientConfig) *CamtrapClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := newResty(cfg.BaseURL)
	r.SetHeader("Accept", "application/json")
	r.SetTimeout(cfg.Timeout)

	return &CamtrapClient{
		HTTP:   r,
		Stream: newResty(cfg.BaseURL),
		Config: cfg,
	}
}

func newResty(baseURL string) *resty.Client {
	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetHeader("User-Agent", userAgent)

	// Each request carries its own id so server logs can be matched to client logs
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.SetHeader("X-Request-ID", uuid.NewString())
		}
		return nil
	})
	return r
}

// checkResponse turns transport errors and non-2xx responses into errors.
func checkResponse(what string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to %s: %w", what, newAPIError(resp.StatusCode(), resp.Body()))
	}
	return nil
}

// newAPIError extracts a readable message from an error body. JSON bodies
// carry it in "error"; anything else (Flask error pages) is stripped to text.
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	} else {
		msg = strings.Join(strings.Fields(html2text.HTML2Text(string(body))), " ")
	}
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		// Never split a multi-byte character
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
