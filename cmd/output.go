package cmd

import (
	"encoding/json"
	"os"
)

// printJSON writes v to stdout indented, for --json.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encoding JSON", err)
	}
}
