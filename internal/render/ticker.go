package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"camtrap-cli/pkg/models"
)

// Ticker shows the latest few records, independent of the filtered views.
type Ticker struct {
	mu      sync.RWMutex
	size    int
	records []models.Detection
}

// NewTicker keeps at most size records; size <= 0 keeps whatever the server sends.
func NewTicker(size int) *Ticker { return &Ticker{size: size} }

func (t *Ticker) Name() string { return "ticker" }

// RenderLatest replaces the rows. Records arrive newest first.
func (t *Ticker) RenderLatest(records []models.Detection) {
	if t.size > 0 && len(records) > t.size {
		records = records[:t.size]
	}
	rows := append([]models.Detection(nil), records...)

	t.mu.Lock()
	t.records = rows
	t.mu.Unlock()
}

func (t *Ticker) Records() []models.Detection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.Detection(nil), t.records...)
}

func (t *Ticker) Draw(w io.Writer) error {
	records := t.Records()
	fmt.Fprintf(w, "LATEST (%d)\n", len(records))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CAMERA\tDATE\tTIME\tSPECIES\tCONFIDENCE")
	for _, r := range records {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", r.Camera, r.Date, r.Time, SpeciesLabel(r.Species), r.Confidence.Format())
	}
	return tw.Flush()
}
