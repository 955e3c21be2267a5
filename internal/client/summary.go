package client

import (
	"context"

	"camtrap-cli/pkg/models"
)

// GetSummary fetches the dashboard KPIs.
func (c *CamtrapClient) GetSummary(ctx context.Context) (models.Summary, error) {
	var respData models.Summary

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/summary")

	if err := checkResponse("get summary", resp, err); err != nil {
		return models.Summary{}, err
	}
	return respData, nil
}
