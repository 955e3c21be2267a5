package models

import "time"

// Snapshot is everything fetched in one refresh cycle. All views are
// redrawn from the same snapshot.
type Snapshot struct {
	Seq        uint64
	Detections []Detection
	// Summary is nil when the summary fetch failed; the KPI view then keeps its previous values.
	Summary   *Summary
	FetchedAt time.Time
}
