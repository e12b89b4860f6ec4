package model

// RebalancingPlan is the artifact produced by one completed cycle.
type RebalancingPlan struct {
	Stations []AnnotatedStation `json:"stations"`
	Bike     []Itinerary        `json:"trajets_velo"`
	Vehicle  []Itinerary        `json:"trajets_camion"`
}

// NewRebalancingPlan returns a plan whose sequences are never nil so they
// serialise as empty arrays.
func NewRebalancingPlan(stations []AnnotatedStation) *RebalancingPlan {
	if stations == nil {
		stations = []AnnotatedStation{}
	}
	return &RebalancingPlan{
		Stations: stations,
		Bike:     []Itinerary{},
		Vehicle:  []Itinerary{},
	}
}
