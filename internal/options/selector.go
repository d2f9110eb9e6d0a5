package options

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

// ErrNoContract means the chain held no candidate inside the profile's
// search windows. Non-fatal: selection is retried on later runs while the
// signal stays live.
var ErrNoContract = errors.New("no suitable option contract")

// Selector picks the listed contract closest to a profile's targets.
type Selector struct {
	logger *logger.Logger
	chain  contracts.OptionChainAccess
}

// NewSelector creates a contract selector.
func NewSelector(log *logger.Logger, chain contracts.OptionChainAccess) *Selector {
	return &Selector{logger: log, chain: chain}
}

// Select fetches the chain for the profile's windows and returns the
// closest contract. Wraps ErrNoContract when nothing qualifies.
func (s *Selector) Select(ctx context.Context, underlying string, spot float64, asOf time.Time, profile contracts.StrategyProfile) (*contracts.OptionContract, error) {
	q := profile.QueryFor(underlying, spot, asOf)

	chain, err := s.chain.GetChain(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s chain for %s: %w", profile.Name, underlying, err)
	}

	picked := closestContract(chain, spot, asOf, profile)
	if picked == nil {
		s.logger.WithFields(map[string]interface{}{
			"underlying": underlying,
			"profile":    profile.Name,
			"candidates": len(chain),
		}).Debug("No contract inside search windows")
		return nil, fmt.Errorf("%w: %s %s", ErrNoContract, underlying, profile.Name)
	}
	return picked, nil
}

// closestContract scores each candidate by normalized distance from the
// profile's target expiration and strike, equally weighted:
//
//	0.5*|dte-targetDTE|/targetDTE + 0.5*|strike-targetStrike|/targetStrike
//
// Ties go to the nearer expiration, then the nearer strike.
func closestContract(chain []contracts.OptionContract, spot float64, asOf time.Time, profile contracts.StrategyProfile) *contracts.OptionContract {
	targetStrike := profile.TargetStrike(spot)
	targetDTE := float64(profile.TargetDTE)
	if targetStrike <= 0 || targetDTE <= 0 {
		return nil
	}

	var best *contracts.OptionContract
	var bestScore, bestDateDist, bestStrikeDist float64

	for i := range chain {
		c := &chain[i]
		if c.Type != profile.Type || c.Strike <= 0 {
			continue
		}
		dte := c.Expiration.Sub(asOf).Hours() / 24
		if dte <= 0 {
			continue
		}

		dateDist := math.Abs(dte-targetDTE) / targetDTE
		strikeDist := math.Abs(c.Strike-targetStrike) / targetStrike
		score := 0.5*dateDist + 0.5*strikeDist

		if best == nil || score < bestScore ||
			(score == bestScore && (dateDist < bestDateDist ||
				(dateDist == bestDateDist && strikeDist < bestStrikeDist))) {
			best = c
			bestScore = score
			bestDateDist = dateDist
			bestStrikeDist = strikeDist
		}
	}
	return best
}
