package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"camtrap-cli/pkg/models"
)

const (
	barWidth  = 40
	noCamera  = "sin_cam"
	hoursADay = 24
)

// Bucket is one bar of a single-series chart.
type Bucket struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value int     `json:"value"`
	Color string  `json:"color"`
	Share float64 `json:"share,omitempty"` // fraction of the total, donut only
}

// Series is one species line or stack across a set of categories.
type Series struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Color  string `json:"color"`
	Values []int  `json:"values"`
}

// ChartSet is everything the charts view shows for one snapshot.
type ChartSet struct {
	Species      []Bucket       `json:"species"`
	Donut        []Bucket       `json:"donut"`
	Dates        []string       `json:"dates"`
	Timeline     []Series       `json:"timeline"`
	Cameras      []string       `json:"cameras"`
	CameraStacks []Series       `json:"camera_stacks"`
	Hours        [hoursADay]int `json:"hours"`
}

// Charts is rebuilt from scratch on every render; nothing carries over
// from the previous snapshot.
type Charts struct {
	mu  sync.RWMutex
	set ChartSet
}

func NewCharts() *Charts { return &Charts{} }

func (c *Charts) Name() string { return "charts" }

func (c *Charts) Render(snap *models.Snapshot) {
	set := BuildCharts(snap.Detections)
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
}

// Set returns the current chart data.
func (c *Charts) Set() ChartSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}

// BuildCharts aggregates detections. Species and cameras keep the order in
// which they first appear; dates are sorted.
func BuildCharts(data []models.Detection) ChartSet {
	var (
		set         ChartSet
		speciesList []string
		cameraList  []string
		counts      = map[string]int{}
		byDate      = map[string]map[string]int{}
		byCamera    = map[string]map[string]int{}
	)

	for _, d := range data {
		s := speciesKey(d.Species)
		if _, seen := counts[s]; !seen {
			speciesList = append(speciesList, s)
		}
		counts[s]++

		if byDate[d.Date] == nil {
			byDate[d.Date] = map[string]int{}
		}
		byDate[d.Date][s]++

		cam := d.Camera
		if cam == "" {
			cam = noCamera
		}
		if byCamera[cam] == nil {
			byCamera[cam] = map[string]int{}
			cameraList = append(cameraList, cam)
		}
		byCamera[cam][s]++

		set.Hours[d.Hour()]++
	}

	total := len(data)
	for _, s := range speciesList {
		b := Bucket{Key: s, Label: SpeciesLabel(s), Value: counts[s], Color: SpeciesColor(s)}
		set.Species = append(set.Species, b)
		b.Share = float64(b.Value) / float64(total)
		set.Donut = append(set.Donut, b)
	}

	for date := range byDate {
		set.Dates = append(set.Dates, date)
	}
	sort.Strings(set.Dates)
	set.Cameras = cameraList

	for _, s := range speciesList {
		line := Series{Key: s, Label: SpeciesLabel(s), Color: SpeciesColor(s), Values: make([]int, len(set.Dates))}
		for i, date := range set.Dates {
			line.Values[i] = byDate[date][s]
		}
		set.Timeline = append(set.Timeline, line)

		stack := Series{Key: s, Label: SpeciesLabel(s), Color: SpeciesColor(s), Values: make([]int, len(cameraList))}
		for i, cam := range cameraList {
			stack.Values[i] = byCamera[cam][s]
		}
		set.CameraStacks = append(set.CameraStacks, stack)
	}
	return set
}

func (c *Charts) Draw(w io.Writer) error {
	set := c.Set()

	fmt.Fprintln(w, "DETECTIONS BY SPECIES")
	if len(set.Species) == 0 {
		fmt.Fprintln(w, "  no data")
	}
	peak := 0
	for _, b := range set.Species {
		peak = max(peak, b.Value)
	}
	for i, b := range set.Species {
		fmt.Fprintf(w, "  %-16s %s %d (%.0f%%)\n", b.Label, bar(b.Value, peak), b.Value, set.Donut[i].Share*100)
	}

	if len(set.Dates) > 0 {
		fmt.Fprintln(w, "DETECTIONS BY DATE")
		for _, s := range set.Timeline {
			fmt.Fprintf(w, "  %-16s %s\n", s.Label, joinInts(s.Values))
		}
		fmt.Fprintf(w, "  %-16s %s\n", "", strings.Join(set.Dates, " "))
	}

	if len(set.Cameras) > 0 {
		fmt.Fprintln(w, "DETECTIONS BY CAMERA")
		for i, cam := range set.Cameras {
			parts := make([]string, 0, len(set.CameraStacks))
			for _, s := range set.CameraStacks {
				if s.Values[i] > 0 {
					parts = append(parts, fmt.Sprintf("%s=%d", s.Label, s.Values[i]))
				}
			}
			fmt.Fprintf(w, "  %-16s %s\n", cam, strings.Join(parts, " "))
		}
	}

	fmt.Fprintln(w, "DETECTIONS BY HOUR")
	peak = 0
	for _, v := range set.Hours {
		peak = max(peak, v)
	}
	for h, v := range set.Hours {
		if v == 0 {
			continue
		}
		fmt.Fprintf(w, "  %02d %s %d\n", h, bar(v, peak), v)
	}
	return nil
}

func bar(v, peak int) string {
	if peak == 0 || v == 0 {
		return ""
	}
	n := v * barWidth / peak
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
