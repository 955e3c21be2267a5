package models

// Summary holds the dashboard KPIs from GET /api/summary.
type Summary struct {
	Total         int     `json:"total"`
	SpeciesCount  int     `json:"species_count"`
	CamerasActive int     `json:"cameras_active"` // configured cameras, not only those with detections
	LastDetection *string `json:"last_detection"`
}

// LastDetectionLabel renders the last detection time, "-" when there is none.
func (s Summary) LastDetectionLabel() string {
	if s.LastDetection == nil || *s.LastDetection == "" {
		return "-"
	}
	return *s.LastDetection
}

// SpeciesCounts is the GET /api/dashboard_stats response: species id -> detections.
type SpeciesCounts map[string]int
