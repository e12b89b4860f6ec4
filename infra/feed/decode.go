// Package feed provides station snapshot sources: the JCDecaux real-time
// API and a local JSON file in the same format.
package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kilianp07/rebalance/core/model"
)

type rawStation struct {
	Number              int             `json:"number"`
	ContractName        string          `json:"contract_name"`
	Name                string          `json:"name"`
	Address             string          `json:"address"`
	Position            *model.Position `json:"position"`
	Banking             bool            `json:"banking"`
	Bonus               bool            `json:"bonus"`
	BikeStands          int             `json:"bike_stands"`
	AvailableBikeStands *int            `json:"available_bike_stands"`
	AvailableBikes      *int            `json:"available_bikes"`
	Status              model.Status    `json:"status"`
	LastUpdate          int64           `json:"last_update"`
}

// DecodeStations reads a JSON array of JCDecaux station records. Records
// are not validated here; a missing position or availability count is only
// flagged.
func DecodeStations(r io.Reader) ([]model.Station, error) {
	var raw []rawStation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	out := make([]model.Station, len(raw))
	for i, s := range raw {
		out[i] = model.Station{
			Number:       s.Number,
			ContractName: s.ContractName,
			Name:         s.Name,
			Address:      s.Address,
			Banking:      s.Banking,
			Bonus:        s.Bonus,
			BikeStands:   s.BikeStands,
			Status:       s.Status,
			LastUpdate:   s.LastUpdate,
		}
		if s.AvailableBikes != nil {
			out[i].AvailableBikes = *s.AvailableBikes
			out[i].HasBikes = true
		}
		if s.AvailableBikeStands != nil {
			out[i].AvailableBikeStands = *s.AvailableBikeStands
			out[i].HasStands = true
		}
		if s.Position != nil {
			out[i].Position = *s.Position
			out[i].HasPosition = true
		}
	}
	return out, nil
}
