package options

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

type fakeChain struct {
	contracts []contracts.OptionContract
	lastQuery contracts.ChainQuery
}

func (f *fakeChain) GetChain(_ context.Context, q contracts.ChainQuery) ([]contracts.OptionContract, error) {
	f.lastQuery = q
	return f.contracts, nil
}

func (f *fakeChain) GetDailyClose(_ context.Context, _ string, _ time.Time) (float64, bool, error) {
	return 0, false, nil
}

var asOf = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func call(symbol string, strike float64, dte int) contracts.OptionContract {
	return contracts.OptionContract{
		Underlying: "NVDA",
		Symbol:     symbol,
		Strike:     strike,
		Expiration: asOf.AddDate(0, 0, dte),
		Type:       contracts.OptionCall,
	}
}

func testSelector(chain *fakeChain) *Selector {
	return NewSelector(logger.NewWriter(io.Discard, "error"), chain)
}

func TestSelectBalancesDateAndStrike(t *testing.T) {
	// Spot 100, mid-call profile: target strike 105, target DTE 100.
	//
	// A: 95 DTE, strike 101 -> 0.5*0.05 + 0.5*(4/105) = 0.0440
	// B: 120 DTE, strike 111.3 -> 0.5*0.20 + 0.5*(6.3/105) = 0.1300
	chain := &fakeChain{contracts: []contracts.OptionContract{
		call("B", 111.3, 120),
		call("A", 101, 95),
	}}

	picked, err := testSelector(chain).Select(context.Background(), "NVDA", 100, asOf, contracts.ProfileMidCall)
	require.NoError(t, err)
	assert.Equal(t, "A", picked.Symbol)
}

func TestSelectTiesPreferNearerExpiration(t *testing.T) {
	// Both candidates score identically: one is off on strike, the other by
	// the same normalized amount on date. The nearer expiration wins.
	chain := &fakeChain{contracts: []contracts.OptionContract{
		{Symbol: "DATE_OFF", Strike: 105, Expiration: asOf.AddDate(0, 0, 110), Type: contracts.OptionCall},
		{Symbol: "STRIKE_OFF", Strike: 115.5, Expiration: asOf.AddDate(0, 0, 100), Type: contracts.OptionCall},
	}}

	picked, err := testSelector(chain).Select(context.Background(), "NVDA", 100, asOf, contracts.ProfileMidCall)
	require.NoError(t, err)
	assert.Equal(t, "STRIKE_OFF", picked.Symbol)
}

func TestSelectFiltersWrongTypeAndExpired(t *testing.T) {
	chain := &fakeChain{contracts: []contracts.OptionContract{
		{Symbol: "PUT", Strike: 105, Expiration: asOf.AddDate(0, 0, 100), Type: contracts.OptionPut},
		{Symbol: "EXPIRED", Strike: 105, Expiration: asOf.AddDate(0, 0, -3), Type: contracts.OptionCall},
		{Symbol: "OK", Strike: 120, Expiration: asOf.AddDate(0, 0, 130), Type: contracts.OptionCall},
	}}

	picked, err := testSelector(chain).Select(context.Background(), "NVDA", 100, asOf, contracts.ProfileMidCall)
	require.NoError(t, err)
	assert.Equal(t, "OK", picked.Symbol)
}

func TestSelectEmptyChain(t *testing.T) {
	_, err := testSelector(&fakeChain{}).Select(context.Background(), "NVDA", 100, asOf, contracts.ProfileShortPut)
	assert.True(t, errors.Is(err, ErrNoContract))
}

func TestSelectQueryWindows(t *testing.T) {
	chain := &fakeChain{contracts: []contracts.OptionContract{call("X", 110, 500)}}

	_, err := testSelector(chain).Select(context.Background(), "NVDA", 100, asOf, contracts.ProfileLeapCall)
	require.NoError(t, err)

	q := chain.lastQuery
	assert.Equal(t, contracts.OptionCall, q.Type)
	assert.Equal(t, asOf.AddDate(0, 0, 300), q.ExpirationFrom)
	assert.Equal(t, asOf.AddDate(0, 0, 700), q.ExpirationTo)
	assert.InDelta(t, 110*0.60, q.StrikeFrom, 1e-9)
	assert.InDelta(t, 110*1.40, q.StrikeTo, 1e-9)
}
