package client

import (
	"context"
	"time"

	"camtrap-cli/pkg/models"
)

// DateFormat is the layout of the start/end query parameters and of Detection.Date.
const DateFormat = "2006-01-02"

// Filter narrows a detection query. Zero fields are not sent.
// The server only filters by day; a Start with a time of day is sent as its
// date and the earlier records of that day are dropped by Apply.
type Filter struct {
	Start   time.Time
	End     time.Time
	Species string
}

// Params returns the query parameters for the filter.
func (f Filter) Params() map[string]string {
	params := map[string]string{}
	if !f.Start.IsZero() {
		params["start"] = f.Start.Format(DateFormat)
	}
	if !f.End.IsZero() {
		params["end"] = f.End.Format(DateFormat)
	}
	if f.Species != "" {
		params["species"] = f.Species
	}
	return params
}

// Apply returns the records at or after Start. Records whose time cannot be
// parsed are kept. The input slice is never modified.
func (f Filter) Apply(records []models.Detection) []models.Detection {
	if f.Start.IsZero() {
		return records
	}
	out := make([]models.Detection, 0, len(records))
	for _, d := range records {
		if at, ok := d.At(f.Start.Location()); ok && at.Before(f.Start) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IsZero reports whether the filter selects every record.
func (f Filter) IsZero() bool {
	return len(f.Params()) == 0
}

// GetDetections lists detection records matching the filter, oldest first.
func (c *CamtrapClient) GetDetections(ctx context.Context, f Filter) ([]models.Detection, error) {
	var respData []models.Detection

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetQueryParams(f.Params()).
		SetResult(&respData).
		Get("/api/detections")

	if err := checkResponse("get detections", resp, err); err != nil {
		return nil, err
	}
	return nonNil(f.Apply(respData)), nil
}

// GetAllDetections lists every record in the log, unfiltered.
func (c *CamtrapClient) GetAllDetections(ctx context.Context) ([]models.Detection, error) {
	var respData []models.Detection

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/todos_registros")

	if err := checkResponse("get all detections", resp, err); err != nil {
		return nil, err
	}
	return nonNil(respData), nil
}

// GetLatest returns the most recent records, newest first. The server caps it at 5.
func (c *CamtrapClient) GetLatest(ctx context.Context) ([]models.Detection, error) {
	var respData []models.Detection

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/ultimos_registros")

	if err := checkResponse("get latest detections", resp, err); err != nil {
		return nil, err
	}
	return nonNil(respData), nil
}

// GetSpeciesCounts returns detections per species over the whole log.
func (c *CamtrapClient) GetSpeciesCounts(ctx context.Context) (models.SpeciesCounts, error) {
	var respData models.SpeciesCounts

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/dashboard_stats")

	if err := checkResponse("get species counts", resp, err); err != nil {
		return nil, err
	}
	if respData == nil {
		respData = models.SpeciesCounts{}
	}
	return respData, nil
}

// GetSpecies returns the sorted list of species ids seen so far.
func (c *CamtrapClient) GetSpecies(ctx context.Context) ([]string, error) {
	var respData []string

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/species")

	if err := checkResponse("get species", resp, err); err != nil {
		return nil, err
	}
	if respData == nil {
		respData = []string{}
	}
	return respData, nil
}

func nonNil(d []models.Detection) []models.Detection {
	if d == nil {
		return []models.Detection{}
	}
	return d
}
