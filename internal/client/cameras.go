package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"camtrap-cli/pkg/models"
)

// GetCameras fetches the camera directory (id -> descriptor).
func (c *CamtrapClient) GetCameras(ctx context.Context) (models.CameraDirectory, error) {
	var respData models.CameraDirectory

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/camaras")

	if err := checkResponse("get cameras", resp, err); err != nil {
		return nil, err
	}

	if respData == nil {
		respData = models.CameraDirectory{}
	}
	return respData, nil
}

// SaveCamera creates (empty ID) or updates a camera descriptor.
func (c *CamtrapClient) SaveCamera(ctx context.Context, payload models.SaveCameraPayload) error {
	var result models.APIResult

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/api/guardar_camara")

	if err := checkResponse("save camera", resp, err); err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("failed to save camera: %s", resultMessage(result))
	}
	return nil
}

// DeleteCamera removes a camera by id. Captured images are kept by the server.
func (c *CamtrapClient) DeleteCamera(ctx context.Context, id string) error {
	var result models.APIResult

	// The server only accepts POST for deletion
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		Post("/api/camaras/{id}/delete")

	return mutationError("delete camera "+id, resp, err, result)
}

// SetCameraDevice assigns the capture-device index of one camera.
func (c *CamtrapClient) SetCameraDevice(ctx context.Context, id string, device int) error {
	var result models.APIResult

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(models.SetDevicePayload{Device: device}).
		SetResult(&result).
		Post("/api/camaras/{id}/set_device")

	return mutationError("set device "+strconv.Itoa(device)+" on camera "+id, resp, err, result)
}

// mutationError maps delete/set_device responses. A 404 means the id is unknown.
func mutationError(what string, resp *resty.Response, err error, result models.APIResult) error {
	if err := checkResponse(what, resp, err); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("failed to %s: %w", what, ErrCameraNotFound)
		}
		return err
	}
	if !result.OK() {
		return fmt.Errorf("failed to %s: %s", what, resultMessage(result))
	}
	return nil
}

func resultMessage(r models.APIResult) string {
	if r.Error != "" {
		return r.Error
	}
	return "server reported failure"
}
