package analytics

import (
	"math/rand/v2"
)

// SyntheticSeries is placeholder data for metrics that have no backing
// records yet. It is always flagged so clients can label it.
type SyntheticSeries struct {
	Name      string           `json:"name"`
	Synthetic bool             `json:"synthetic"`
	Points    []SyntheticPoint `json:"points"`
}

type SyntheticPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

var (
	salesReps  = []string{"Rep A", "Rep B", "Rep C", "Rep D"}
	activities = []string{"call", "email", "meeting", "proposal"}
)

// Synthetic returns deal velocity, sales-rep performance and activity
// effectiveness placeholders. The same range and months always produce the
// same values.
func Synthetic(r Range, keys []string) []SyntheticSeries {
	var seed uint64
	for _, k := range keys {
		for _, b := range []byte(k) {
			seed = seed*31 + uint64(b)
		}
	}
	rng := rand.New(rand.NewPCG(seed, uint64(r.Months())))

	velocity := SyntheticSeries{Name: "deal_velocity", Synthetic: true}
	for _, k := range keys {
		velocity.Points = append(velocity.Points, SyntheticPoint{Label: k, Value: float64(10 + rng.IntN(31))})
	}

	reps := SyntheticSeries{Name: "sales_rep_performance", Synthetic: true}
	for _, name := range salesReps {
		reps.Points = append(reps.Points, SyntheticPoint{Label: name, Value: float64(5000 + rng.IntN(45001))})
	}

	effectiveness := SyntheticSeries{Name: "activity_effectiveness", Synthetic: true}
	for _, a := range activities {
		effectiveness.Points = append(effectiveness.Points, SyntheticPoint{Label: a, Value: round2(10 + rng.Float64()*50)})
	}

	return []SyntheticSeries{velocity, reps, effectiveness}
}
