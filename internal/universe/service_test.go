package universe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

const membershipFixture = `
<html><body>
<table class="table">
<thead><tr><th>#</th><th>Company</th><th>Symbol</th><th>Weight</th></tr></thead>
<tbody>
<tr><td>1</td><td>Nvidia</td><td>NVDA</td><td>7.51%</td></tr>
<tr><td>2</td><td>Microsoft</td><td>MSFT</td><td>6.84%</td></tr>
<tr><td>3</td><td>Apple</td><td>AAPL</td><td>6.20%</td></tr>
<tr><td>4</td><td>Alphabet Class A</td><td>GOOGL</td><td>2.10%</td></tr>
<tr><td>5</td><td>Alphabet Class C</td><td>GOOG</td><td>1.95%</td></tr>
<tr><td>6</td><td>Broken Row</td><td>ZZZZ</td><td>-</td></tr>
</tbody>
</table>
</body></html>`

func TestParseMembers(t *testing.T) {
	members, err := parseMembers(strings.NewReader(membershipFixture))
	require.NoError(t, err)
	require.Len(t, members, 5, "row without a weight is skipped")

	assert.Equal(t, "NVDA", members[0].Symbol)
	assert.Equal(t, "Nvidia", members[0].Name)
	assert.InDelta(t, 7.51, members[0].Weight, 1e-9)
	assert.Equal(t, "GOOG", members[4].Symbol)
}

func TestParseMembersEmptyPage(t *testing.T) {
	_, err := parseMembers(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	assert.Error(t, err)
}

func TestParseWeight(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"6.54%", 6.54, true},
		{"6.54", 6.54, true},
		{"1,234.5", 1234.5, true},
		{"-", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseWeight(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, tc.in)
		}
	}
}

func TestDeriveMegacapMergesShareClasses(t *testing.T) {
	sp500 := []contracts.Member{
		{Symbol: "NVDA", Weight: 7.5},
		{Symbol: "MSFT", Weight: 6.8},
		{Symbol: "GOOGL", Weight: 2.1},
		{Symbol: "AAPL", Weight: 6.2},
		{Symbol: "GOOG", Weight: 1.95},
		{Symbol: "AMZN", Weight: 3.9},
	}

	mega := deriveMegacap(sp500)
	require.Len(t, mega, 5, "GOOG folds into GOOGL")

	bySymbol := make(map[string]float64)
	for _, m := range mega {
		bySymbol[m.Symbol] = m.Weight
	}
	_, hasGOOG := bySymbol["GOOG"]
	assert.False(t, hasGOOG)
	assert.InDelta(t, 4.05, bySymbol["GOOGL"], 1e-9)

	// Combined Alphabet outranks AMZN.
	assert.Equal(t, "GOOGL", mega[3].Symbol)
	assert.Equal(t, "AMZN", mega[4].Symbol)
}

func TestDeriveMegacapTruncates(t *testing.T) {
	var sp500 []contracts.Member
	for i := 0; i < 50; i++ {
		sp500 = append(sp500, contracts.Member{
			Symbol: string(rune('A'+i/26)) + string(rune('A'+i%26)),
			Weight: float64(100 - i),
		})
	}

	mega := deriveMegacap(sp500)
	require.Len(t, mega, megacapSize)
	assert.Equal(t, 100.0, mega[0].Weight)
}

func TestDiffMembers(t *testing.T) {
	asOf := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	prev := []contracts.Member{{Symbol: "AAPL"}, {Symbol: "INTC"}}
	fresh := []contracts.Member{{Symbol: "AAPL"}, {Symbol: "PLTR"}}

	changes := diffMembers(contracts.CohortSP500, prev, fresh, asOf)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Cohort: contracts.CohortSP500, Symbol: "PLTR", Action: "added", Date: asOf}, changes[0])
	assert.Equal(t, Change{Cohort: contracts.CohortSP500, Symbol: "INTC", Action: "removed", Date: asOf}, changes[1])

	// First sync is not a flood of adds.
	assert.Empty(t, diffMembers(contracts.CohortSP500, nil, fresh, asOf))
}

type fakeMemberStore struct {
	members map[contracts.Cohort][]contracts.Member
	changes []Change
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{members: make(map[contracts.Cohort][]contracts.Member)}
}

func (f *fakeMemberStore) GetMembers(_ context.Context, cohort contracts.Cohort) ([]contracts.Member, error) {
	return f.members[cohort], nil
}

func (f *fakeMemberStore) ReplaceMembers(_ context.Context, cohort contracts.Cohort, members []contracts.Member) error {
	f.members[cohort] = members
	return nil
}

func (f *fakeMemberStore) AppendChanges(_ context.Context, changes []Change) error {
	f.changes = append(f.changes, changes...)
	return nil
}

type fakePageFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakePageFetcher) Get(_ context.Context, url string) (*http.Response, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func TestSync(t *testing.T) {
	store := newFakeMemberStore()
	fetcher := &fakePageFetcher{pages: map[string]string{
		sp500URL:  membershipFixture,
		midcapURL: membershipFixture,
	}}
	svc := NewService(logger.NewWriter(io.Discard, "error"), fetcher, store)

	asOf := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Sync(context.Background(), asOf))

	sp500, err := svc.Members(context.Background(), contracts.CohortSP500)
	require.NoError(t, err)
	assert.Len(t, sp500, 5)

	mega, err := svc.Members(context.Background(), contracts.CohortMegacap)
	require.NoError(t, err)
	assert.Len(t, mega, 4, "share classes merged")
	assert.Empty(t, store.changes, "first sync records no changes")

	// A later sync with a changed index records the delta.
	changed := strings.Replace(membershipFixture, "AAPL", "PLTR", 1)
	fetcher.pages[sp500URL] = changed
	require.NoError(t, svc.Sync(context.Background(), asOf.AddDate(0, 0, 7)))
	require.NotEmpty(t, store.changes)

	seen := make(map[string]string)
	for _, c := range store.changes {
		if c.Cohort == contracts.CohortSP500 {
			seen[c.Symbol] = c.Action
		}
	}
	assert.Equal(t, "added", seen["PLTR"])
	assert.Equal(t, "removed", seen["AAPL"])
}

func TestMembersEmptyUniverse(t *testing.T) {
	svc := NewService(logger.NewWriter(io.Discard, "error"), &fakePageFetcher{}, newFakeMemberStore())
	_, err := svc.Members(context.Background(), contracts.CohortMidcap)
	assert.Error(t, err)
}
