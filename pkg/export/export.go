// Package export serialises rebalancing plans.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/rebalance/core/model"
)

// Format names a supported serialisation.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv", case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Write serialises the plan in the given format.
func Write(w io.Writer, f Format, plan *model.RebalancingPlan) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, plan, true)
	case FormatCSV:
		return WriteCSV(w, plan)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteJSON writes the plan document: stations, then bike itineraries, then
// vehicle itineraries.
func WriteJSON(w io.Writer, plan *model.RebalancingPlan, indent bool) error {
	if plan == nil {
		plan = model.NewRebalancingPlan(nil)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(plan)
}

// WriteCSV writes one row per itinerary, bike itineraries first. The path is
// encoded as "lat lng" points separated by semicolons.
func WriteCSV(w io.Writer, plan *model.RebalancingPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"mode_transport", "source", "destination", "source_color", "destination_color", "points", "path"}); err != nil {
		return err
	}
	if plan != nil {
		for _, group := range [][]model.Itinerary{plan.Bike, plan.Vehicle} {
			for _, it := range group {
				rec := []string{
					string(it.Mode),
					it.Source,
					it.Destination,
					it.SourceColor,
					it.DestinationColor,
					strconv.Itoa(len(it.Path)),
					encodePath(it.Path),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodePath(path []model.Coordinate) string {
	var b strings.Builder
	for i, c := range path {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(c.Lat, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(c.Lng, 'f', -1, 64))
	}
	return b.String()
}
