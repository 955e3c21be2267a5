// Package render turns fetched snapshots into plain-text views. Each view
// keeps only what it last rendered and redraws fully on every snapshot.
package render

import (
	"fmt"
	"io"
	"time"
)

// Screen groups the dashboard views and draws them in a fixed order.
type Screen struct {
	Banner *Banner
	KPI    *KPI
	Map    *Map
	Charts *Charts
	Table  *Table
	Ticker *Ticker
}

func NewScreen(tickerSize int) *Screen {
	return &Screen{
		Banner: NewBanner(),
		KPI:    NewKPI(),
		Map:    NewMap(),
		Charts: NewCharts(),
		Table:  NewTable(),
		Ticker: NewTicker(tickerSize),
	}
}

type drawer interface {
	Draw(w io.Writer) error
}

// Draw writes every view. clear prefixes the ANSI clear-screen sequence for
// redraws in live mode.
func (s *Screen) Draw(w io.Writer, clear bool) error {
	if clear {
		fmt.Fprint(w, "\033[H\033[2J")
	}
	fmt.Fprintf(w, "camtrap dashboard  %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	for _, d := range []drawer{s.Banner, s.KPI, s.Map, s.Charts, s.Table, s.Ticker} {
		if err := d.Draw(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
