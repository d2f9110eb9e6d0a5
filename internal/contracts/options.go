package contracts

import "time"

// OptionType is the contract side.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// StrategyProfile describes one shadow strategy's target parameters.
// Profiles are configuration constants, not derived data.
type StrategyProfile struct {
	Name         string
	TargetDTE    int        // target days to expiration
	MoneynessPct float64    // strike offset relative to spot (signed for calls, magnitude for puts)
	Type         OptionType

	// Chain search windows. LEAP cycles are sparse, so the long-dated
	// profile searches a much wider band.
	DateWindowDays  int
	StrikeWindowPct float64
}

// The three shadow strategies tracked per stock signal.
var (
	ProfileMidCall = StrategyProfile{
		Name:            "100d_call",
		TargetDTE:       100,
		MoneynessPct:    0.05,
		Type:            OptionCall,
		DateWindowDays:  45,
		StrikeWindowPct: 0.25,
	}

	ProfileLeapCall = StrategyProfile{
		Name:            "500d_leap",
		TargetDTE:       500,
		MoneynessPct:    0.10,
		Type:            OptionCall,
		DateWindowDays:  200,
		StrikeWindowPct: 0.40,
	}

	ProfileShortPut = StrategyProfile{
		Name:            "short_put",
		TargetDTE:       30,
		MoneynessPct:    0.0,
		Type:            OptionPut,
		DateWindowDays:  20,
		StrikeWindowPct: 0.20,
	}
)

// StrategyProfiles returns the tracked profiles in creation order.
func StrategyProfiles() []StrategyProfile {
	return []StrategyProfile{ProfileMidCall, ProfileLeapCall, ProfileShortPut}
}

// ProfileByName looks up a tracked profile.
func ProfileByName(name string) (StrategyProfile, bool) {
	for _, p := range StrategyProfiles() {
		if p.Name == name {
			return p, true
		}
	}
	return StrategyProfile{}, false
}

// TargetStrike computes the profile's target strike for a spot price.
// Calls target above spot, puts below.
func (p StrategyProfile) TargetStrike(spot float64) float64 {
	if p.Type == OptionPut {
		if p.MoneynessPct < 0 {
			return spot * (1 + p.MoneynessPct)
		}
		return spot * (1 - p.MoneynessPct)
	}
	return spot * (1 + p.MoneynessPct)
}

// OptionContract is one listed contract as observed at a point in time.
// Immutable once recorded; a later observation is a new record.
type OptionContract struct {
	Underlying string     `json:"underlying"`
	Symbol     string     `json:"symbol"`
	Strike     float64    `json:"strike"`
	Expiration time.Time  `json:"expiration"`
	Type       OptionType `json:"type"`
	LastPrice  float64    `json:"last_price,omitempty"`
	ObservedAt time.Time  `json:"observed_at"`
}

// ChainQuery bounds an option-chain lookup.
type ChainQuery struct {
	Underlying     string
	Type           OptionType
	ExpirationFrom time.Time
	ExpirationTo   time.Time
	StrikeFrom     float64
	StrikeTo       float64
}

// QueryFor builds the chain query for a profile given spot and as-of date.
func (p StrategyProfile) QueryFor(underlying string, spot float64, asOf time.Time) ChainQuery {
	target := p.TargetStrike(spot)
	targetExp := asOf.AddDate(0, 0, p.TargetDTE)
	window := time.Duration(p.DateWindowDays) * 24 * time.Hour

	return ChainQuery{
		Underlying:     underlying,
		Type:           p.Type,
		ExpirationFrom: targetExp.Add(-window),
		ExpirationTo:   targetExp.Add(window),
		StrikeFrom:     target * (1 - p.StrikeWindowPct),
		StrikeTo:       target * (1 + p.StrikeWindowPct),
	}
}
