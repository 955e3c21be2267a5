// Package directory keeps a read-through cache of the server's camera list.
// The cache is replaced on every reload and invalidated after every
// successful edit, so it never lags the server by more than one call.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/logging"
	"camtrap-cli/pkg/models"
)

const (
	DefaultTTL = 5 * time.Minute
	cacheKey   = "cameras"
)

// ErrInvalidCamera is returned by Save for descriptors the server would store garbage for.
var ErrInvalidCamera = errors.New("invalid camera")

// CameraAPI is the part of the server client the directory needs.
type CameraAPI interface {
	GetCameras(ctx context.Context) (models.CameraDirectory, error)
	SaveCamera(ctx context.Context, payload models.SaveCameraPayload) error
	DeleteCamera(ctx context.Context, id string) error
	SetCameraDevice(ctx context.Context, id string, device int) error
}

type Directory struct {
	api    CameraAPI
	cache  *cache.Cache
	logger *slog.Logger
	// last successful fetch, kept past TTL expiry so failed reloads stay stale-but-consistent
	mu   sync.Mutex
	last models.CameraDirectory
}

func New(api CameraAPI, ttl time.Duration, logger *slog.Logger) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Directory{
		api:    api,
		cache:  cache.New(ttl, ttl*2),
		logger: logger,
	}
}

// List returns the cached directory, fetching it when the cache is empty or expired.
func (d *Directory) List(ctx context.Context) (models.CameraDirectory, error) {
	if cached, found := d.cache.Get(cacheKey); found {
		return cached.(models.CameraDirectory).Clone(), nil
	}
	return d.Reload(ctx)
}

// Reload always fetches. On failure the previous directory is returned with the error.
func (d *Directory) Reload(ctx context.Context) (models.CameraDirectory, error) {
	cams, err := d.api.GetCameras(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.logger.Warn("camera reload failed, keeping previous list", "error", err, "cameras", len(d.last))
		return d.last.Clone(), err
	}

	d.last = cams.Clone()
	d.cache.Set(cacheKey, cams.Clone(), cache.DefaultExpiration)
	d.logger.Debug("camera directory reloaded", "cameras", len(cams))
	return cams, nil
}

// Get returns one camera from the cached directory.
func (d *Directory) Get(ctx context.Context, id string) (models.Camera, error) {
	cams, err := d.List(ctx)
	if err != nil {
		return models.Camera{}, err
	}
	cam, ok := cams[id]
	if !ok {
		return models.Camera{}, fmt.Errorf("camera %s: %w", id, client.ErrCameraNotFound)
	}
	return cam, nil
}

// EditPayload returns a save request for an existing camera, prefilled with
// its current values from the cached directory.
func (d *Directory) EditPayload(ctx context.Context, id string) (models.SaveCameraPayload, error) {
	cam, err := d.Get(ctx, id)
	if err != nil {
		return models.SaveCameraPayload{}, err
	}
	p := models.SaveCameraPayload{
		ID:   id,
		Name: cam.Name,
		Lat:  cam.Lat.Value,
		Lon:  cam.Lon.Value,
	}
	if cam.Device.Valid {
		p.Device = cam.Device.Index
	}
	return p, nil
}

// Save creates or updates a camera.
func (d *Directory) Save(ctx context.Context, payload models.SaveCameraPayload) error {
	if payload.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCamera)
	}
	if payload.Lat < -90 || payload.Lat > 90 || payload.Lon < -180 || payload.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%v, %v)", ErrInvalidCamera, payload.Lat, payload.Lon)
	}
	if payload.Device < 0 {
		return fmt.Errorf("%w: device index must not be negative", ErrInvalidCamera)
	}

	if err := d.api.SaveCamera(ctx, payload); err != nil {
		return err
	}
	d.Invalidate()
	return nil
}

// Delete removes a camera. An unknown id leaves the cache untouched.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.api.DeleteCamera(ctx, id); err != nil {
		return err
	}
	d.Invalidate()
	return nil
}

// SetDevice assigns the capture-device index of a camera.
func (d *Directory) SetDevice(ctx context.Context, id string, device int) error {
	if device < 0 {
		return fmt.Errorf("%w: device index must not be negative", ErrInvalidCamera)
	}
	if err := d.api.SetCameraDevice(ctx, id, device); err != nil {
		return err
	}
	d.Invalidate()
	return nil
}

// Invalidate drops the cached directory so the next List goes to the server.
func (d *Directory) Invalidate() {
	d.cache.Delete(cacheKey)
}
