package cmd

import (
	"fmt"
	"time"

	"camtrap-cli/internal/client"
)

var (
	filterStart   string
	filterEnd     string
	filterSince   string
	filterSpecies string
)

// buildFilter turns the --start/--end/--since/--species flags into a query filter.
// --since wins over --start when both are given and keeps the exact instant;
// the records of its first day that are older are dropped after the fetch.
func buildFilter() (client.Filter, error) {
	var f client.Filter

	if filterStart != "" {
		t, err := time.ParseInLocation(client.DateFormat, filterStart, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid --start %q (want YYYY-MM-DD)", filterStart)
		}
		f.Start = t
	}
	if filterEnd != "" {
		t, err := time.ParseInLocation(client.DateFormat, filterEnd, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid --end %q (want YYYY-MM-DD)", filterEnd)
		}
		f.End = t
	}
	if filterSince != "" {
		d, err := time.ParseDuration(filterSince)
		if err != nil {
			return f, fmt.Errorf("invalid --since %q: %w", filterSince, err)
		}
		f.Start = time.Now().Add(-d)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(startOfDay(f.Start)) {
		return f, fmt.Errorf("--end %s is before the start date", filterEnd)
	}
	f.Species = filterSpecies
	return f, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
