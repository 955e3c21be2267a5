package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"camtrap-cli/pkg/models"
)

// Row is one line of the records table.
type Row struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Species string `json:"species"`
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Camera  string `json:"camera"`
	Image   string `json:"image"`
}

// Table lists every detection of the snapshot, newest first.
type Table struct {
	mu   sync.RWMutex
	rows []Row
}

func NewTable() *Table { return &Table{} }

func (t *Table) Name() string { return "table" }

// Render replaces all rows. The server returns records oldest first.
func (t *Table) Render(snap *models.Snapshot) {
	rows := make([]Row, 0, len(snap.Detections))
	for i := len(snap.Detections) - 1; i >= 0; i-- {
		d := snap.Detections[i]
		img := ""
		if d.Image != "" {
			img = "/captures/" + d.Image
		}
		rows = append(rows, Row{
			Date:    d.Date,
			Time:    d.Time,
			Species: SpeciesLabel(d.Species),
			Lat:     d.Lat.String(),
			Lon:     d.Lon.String(),
			Camera:  d.Camera,
			Image:   img,
		})
	}

	t.mu.Lock()
	t.rows = rows
	t.mu.Unlock()
}

func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Row(nil), t.rows...)
}

func (t *Table) Draw(w io.Writer) error {
	rows := t.Rows()
	fmt.Fprintf(w, "RECORDS (%d)\n", len(rows))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  DATE\tTIME\tSPECIES\tLAT\tLON\tCAMERA\tIMAGE")
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, r.Time, r.Species, r.Lat, r.Lon, r.Camera, r.Image)
	}
	return tw.Flush()
}
