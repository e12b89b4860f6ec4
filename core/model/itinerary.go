package model

import (
	"encoding/json"
	"fmt"
)

// Mode is the transport mode an itinerary is computed for.
type Mode string

const (
	ModeBike    Mode = "velo"
	ModeVehicle Mode = "camion"
)

// String returns the mode label used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeBike:
		return "bike"
	case ModeVehicle:
		return "vehicle"
	default:
		return string(m)
	}
}

// GraphKind identifies which transport network served a route.
type GraphKind int

const (
	GraphCycle GraphKind = iota + 1
	GraphRoad
)

func (g GraphKind) String() string {
	switch g {
	case GraphCycle:
		return "cycle"
	case GraphRoad:
		return "road"
	default:
		return "unknown"
	}
}

// Coordinate is a (latitude, longitude) pair. It serialises as [lat, lng].
type Coordinate struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the coordinate as a two-element array.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

// UnmarshalJSON decodes a [lat, lng] array.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 2 {
		return fmt.Errorf("coordinate: expected 2 values, got %d", len(arr))
	}
	c.Lat, c.Lng = arr[0], arr[1]
	return nil
}

// Itinerary is a computed route between a surplus and a deficit station.
// Stations are referenced by name only.
type Itinerary struct {
	Source           string       `json:"source"`
	Destination      string       `json:"destination"`
	SourceColor      string       `json:"source_color"`
	DestinationColor string       `json:"destination_color"`
	SourceIcon       string       `json:"source_icon"`
	DestinationIcon  string       `json:"destination_icon"`
	Path             []Coordinate `json:"path"`
	Mode             Mode         `json:"mode_transport"`

	// Graph is the network that produced Path.
	Graph GraphKind `json:"-"`
	// Length is the path length in the graph's weight unit.
	Length float64 `json:"-"`
}

// Fallback reports whether a bike itinerary was computed on the road graph.
func (it Itinerary) Fallback() bool {
	return it.Mode == ModeBike && it.Graph == GraphRoad
}
