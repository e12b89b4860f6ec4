package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedStation is returned when a feed record lacks a required field
// or carries values outside its contract.
var ErrMalformedStation = errors.New("malformed station record")

// Status is the operational status reported by the station feed.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// IsClosed reports whether the status denotes a closed or maintained station.
func (s Status) IsClosed() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(StatusClosed))
}

// Position is a WGS84 coordinate.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Station is one docking station as reported by the feed for a snapshot.
type Station struct {
	Number              int      `json:"number"`
	ContractName        string   `json:"contract_name"`
	Name                string   `json:"name"`
	Address             string   `json:"address"`
	Position            Position `json:"position"`
	Banking             bool     `json:"banking"`
	Bonus               bool     `json:"bonus"`
	BikeStands          int      `json:"bike_stands"`
	AvailableBikeStands int      `json:"available_bike_stands"`
	AvailableBikes      int      `json:"available_bikes"`
	Status              Status   `json:"status"`
	LastUpdate          int64    `json:"last_update"`

	// HasPosition is false when the feed record carried no coordinates.
	HasPosition bool `json:"-"`
	// HasBikes and HasStands are false when the matching count was absent.
	HasBikes    bool `json:"-"`
	HasStands   bool `json:"-"`
}

// Validate checks the fields the classifier and router depend on.
func (s Station) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: missing name", ErrMalformedStation)
	case !s.HasPosition:
		return fmt.Errorf("%w: %s: missing position", ErrMalformedStation, s.Name)
	case !s.HasBikes:
		return fmt.Errorf("%w: %s: missing available_bikes", ErrMalformedStation, s.Name)
	case !s.HasStands:
		return fmt.Errorf("%w: %s: missing available_bike_stands", ErrMalformedStation, s.Name)
	case s.AvailableBikes < 0 || s.AvailableBikeStands < 0:
		return fmt.Errorf("%w: %s: negative availability (%d bikes, %d stands)",
			ErrMalformedStation, s.Name, s.AvailableBikes, s.AvailableBikeStands)
	case strings.TrimSpace(string(s.Status)) == "":
		return fmt.Errorf("%w: %s: missing status", ErrMalformedStation, s.Name)
	}
	return nil
}

// Category is the occupancy bucket assigned by the classifier.
type Category string

const (
	CategorySurplus       Category = "SURPLUS"
	CategoryDeficitLow    Category = "DEFICIT_LOW"
	CategoryDeficitMid    Category = "DEFICIT_MID"
	CategoryUnknownClosed Category = "UNKNOWN_CLOSED"
	CategoryUnknownNoData Category = "UNKNOWN_NO_DATA"
)

// IsUnknown reports whether the category is one of the gray variants.
func (c Category) IsUnknown() bool {
	return c == CategoryUnknownClosed || c == CategoryUnknownNoData
}

// Display colours.
const (
	ColorGreen  = "green"
	ColorOrange = "orange"
	ColorRed    = "red"
	ColorGray   = "gray"
)

// Display icons.
const (
	IconMaintenance = "⚠️"
	IconNoData      = "❓"
	IconRed         = "🔴"
	IconOrange      = "🟠"
	IconGreen       = "🟢"
)

// Classification is the derived triple computed from a station's counts and status.
type Classification struct {
	Category Category
	Color    string
	Icon     string
}

// AnnotatedStation pairs a station with its classification. It is a copy of
// the feed record, never an alias of it.
type AnnotatedStation struct {
	Station
	Category Category `json:"categorie"`
	Color    string   `json:"couleur"`
	Icon     string   `json:"icone"`
}

// Classification returns the derived fields of the station.
func (a AnnotatedStation) Classification() Classification {
	return Classification{Category: a.Category, Color: a.Color, Icon: a.Icon}
}
