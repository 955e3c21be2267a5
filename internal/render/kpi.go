package render

import (
	"fmt"
	"io"
	"sync"

	"camtrap-cli/pkg/models"
)

// KPI shows the summary counters. A snapshot without a summary leaves the
// previous values in place.
type KPI struct {
	mu      sync.RWMutex
	summary models.Summary
	set     bool
}

func NewKPI() *KPI { return &KPI{} }

func (k *KPI) Name() string { return "kpi" }

func (k *KPI) Render(snap *models.Snapshot) {
	if snap.Summary == nil {
		return
	}
	k.mu.Lock()
	k.summary = *snap.Summary
	k.set = true
	k.mu.Unlock()
}

// Summary returns the displayed counters; ok is false before the first successful fetch.
func (k *KPI) Summary() (s models.Summary, ok bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.summary, k.set
}

func (k *KPI) Draw(w io.Writer) error {
	s, _ := k.Summary()
	_, err := fmt.Fprintf(w, "TOTAL %d | SPECIES %d | CAMERAS %d | LAST %s\n",
		s.Total, s.SpeciesCount, s.CamerasActive, s.LastDetectionLabel())
	return err
}
