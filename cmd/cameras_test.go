package cmd

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/directory"
	"camtrap-cli/internal/fakeapi"
	"camtrap-cli/pkg/models"
)

func setCameraFlags(t *testing.T, id, name string, lat, lon float64, device int) {
	t.Helper()
	cameraID, cameraName, cameraLat, cameraLon, cameraDevice = id, name, lat, lon, device
	t.Cleanup(func() {
		cameraID, cameraName, cameraLat, cameraLon, cameraDevice = "", "", 0, 0, 0
	})
}

func changedFlags(names ...string) func(string) bool {
	return func(name string) bool { return slices.Contains(names, name) }
}

func newCameraDirectory(t *testing.T) (*fakeapi.Server, *directory.Directory) {
	t.Helper()
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.SetCameras(models.CameraDirectory{
		"3": {Name: "Sendero", Lat: models.NewCoord(8.91), Lon: models.NewCoord(-79.6), Device: models.NewDevice(1)},
	})
	api := client.New(client.ClientConfig{BaseURL: srv.URL})
	return srv, directory.New(api, time.Minute, nil)
}

func TestCameraPayloadPrefillsExistingCamera(t *testing.T) {
	srv, dir := newCameraDirectory(t)
	ctx := context.Background()
	setCameraFlags(t, "3", "", 0, 0, 2)

	payload, err := cameraPayload(ctx, dir, changedFlags("device"))
	require.NoError(t, err)
	assert.Equal(t, models.SaveCameraPayload{ID: "3", Name: "Sendero", Lat: 8.91, Lon: -79.6, Device: 2}, payload)

	require.NoError(t, dir.Save(ctx, payload))
	cam := srv.Cameras()["3"]
	assert.Equal(t, "Sendero", cam.Name)
	assert.Equal(t, models.NewDevice(2), cam.Device)
	assert.Equal(t, models.NewCoord(8.91), cam.Lat)

	// The save invalidated the cache, so the list shows the new device
	cams, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NewDevice(2), cams["3"].Device)
}

func TestCameraPayloadOverridesGivenFlags(t *testing.T) {
	_, dir := newCameraDirectory(t)
	setCameraFlags(t, "3", "Sendero Alto", 9.1, 0, 0)

	payload, err := cameraPayload(context.Background(), dir, changedFlags("name", "lat"))
	require.NoError(t, err)
	assert.Equal(t, models.SaveCameraPayload{ID: "3", Name: "Sendero Alto", Lat: 9.1, Lon: -79.6, Device: 1}, payload)
}

func TestCameraPayloadUnknownID(t *testing.T) {
	_, dir := newCameraDirectory(t)
	setCameraFlags(t, "99", "", 0, 0, 0)

	_, err := cameraPayload(context.Background(), dir, changedFlags())
	assert.ErrorIs(t, err, client.ErrCameraNotFound)
}

func TestCameraPayloadNewCameraNeedsPosition(t *testing.T) {
	_, dir := newCameraDirectory(t)
	setCameraFlags(t, "", "Quebrada Norte", 8.95, 0, 0)

	_, err := cameraPayload(context.Background(), dir, changedFlags("name", "lat"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--lon")

	payload, err := cameraPayload(context.Background(), dir, changedFlags("name", "lat", "lon"))
	require.NoError(t, err)
	assert.Equal(t, models.SaveCameraPayload{Name: "Quebrada Norte", Lat: 8.95}, payload)
}
