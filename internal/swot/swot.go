// Package swot builds synthetic SWOT discharge samples from gauge records: a
// fixed 21-day revisit cycle decides which days the satellite would observe,
// and a log-gaussian error model perturbs the gauge value on those days.
//
// The synthetic SWOT approach was presented at AGU Fall Meeting 2021; the
// error parameters follow Nickles et al. (2019).
package swot

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	// CycleDays is the SWOT science orbit repeat period.
	CycleDays = 21

	// FloorDischarge replaces negative simulated discharge.
	FloorDischarge = 0.1

	// CFSToCMS converts cubic feet per second to cubic metres per second.
	CFSToCMS = 0.028316846592
)

type Day struct {
	Date time.Time
	Rank int
	Pass int
}

// Table lists every day from start through horizon inclusive with its rank
// (start is rank 1) and revisit pass number.
func Table(start, horizon time.Time) []Day {
	start, horizon = midnight(start), midnight(horizon)
	var days []Day
	for d, rank := start, 1; !d.After(horizon); d, rank = d.AddDate(0, 0, 1), rank+1 {
		days = append(days, Day{Date: d, Rank: rank, Pass: PassNumber(start, d)})
	}
	return days
}

// PassNumber returns the revisit pass of date in a cycle that starts on
// start. Passes run 1..21; a rank divisible by 21 is pass 21.
func PassNumber(start, date time.Time) int {
	days := int(midnight(date).Sub(midnight(start)).Hours() / 24)
	return passForRank(days + 1)
}

func passForRank(rank int) int {
	p := rank % CycleDays
	if p <= 0 {
		p += CycleDays
	}
	return p
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Noise applies multiplicative log-gaussian error whose mean and standard
// deviation scale with log10 of the discharge.
type Noise struct {
	Mu    float64
	Sigma float64
	rng   *rand.Rand
}

func NewNoise(mu, sigma float64, seed uint64) *Noise {
	return &Noise{
		Mu:    mu,
		Sigma: sigma,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Apply returns the simulated discharge for q. Non-positive q passes through;
// when the scaled sigma is not positive no error is drawn and q is returned
// unchanged. Negative results are floored to FloorDischarge.
func (n *Noise) Apply(q float64) float64 {
	v := q
	if q > 0 {
		l := math.Log10(q)
		mu := n.Mu * l
		sigma := n.Sigma * l
		if sigma > 0 {
			v = math.Pow(10, l+mu+sigma*n.rng.NormFloat64())
		}
	}
	if v < 0 {
		v = FloorDischarge
	}
	return v
}
