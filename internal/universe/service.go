package universe

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/logger"
)

const (
	sp500URL  = "https://www.slickcharts.com/sp500"
	midcapURL = "https://www.slickcharts.com/sp400"

	// megacapSize is how many of the largest S&P 500 names form the
	// megacap cohort after share-class merging.
	megacapSize = 25
)

// pageFetcher is the slice of httputil.Client the service needs.
type pageFetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// memberStore is the slice of Repository the service needs.
type memberStore interface {
	GetMembers(ctx context.Context, cohort contracts.Cohort) ([]contracts.Member, error)
	ReplaceMembers(ctx context.Context, cohort contracts.Cohort, members []contracts.Member) error
	AppendChanges(ctx context.Context, changes []Change) error
}

// Service maintains index membership for all cohorts. It implements
// contracts.UniverseProvider.
type Service struct {
	logger  *logger.Logger
	client  pageFetcher
	store   memberStore
	sources map[contracts.Cohort]string
}

// NewService creates a universe service.
func NewService(log *logger.Logger, client pageFetcher, store memberStore) *Service {
	return &Service{
		logger: log,
		client: client,
		store:  store,
		sources: map[contracts.Cohort]string{
			contracts.CohortSP500:  sp500URL,
			contracts.CohortMidcap: midcapURL,
		},
	}
}

// Members implements contracts.UniverseProvider from stored membership.
func (s *Service) Members(ctx context.Context, cohort contracts.Cohort) ([]contracts.Member, error) {
	members, err := s.store.GetMembers(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("load %s members: %w", cohort, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%s membership is empty; run a universe sync first", cohort)
	}
	return members, nil
}

// Sync refreshes all cohorts from their source pages, derives the megacap
// cohort from the refreshed S&P 500, and appends adds/drops to the change
// log. The change date is asOf, not fetch time.
func (s *Service) Sync(ctx context.Context, asOf time.Time) error {
	sp500, err := s.fetchMembers(ctx, s.sources[contracts.CohortSP500])
	if err != nil {
		return fmt.Errorf("sync sp500: %w", err)
	}

	midcap, err := s.fetchMembers(ctx, s.sources[contracts.CohortMidcap])
	if err != nil {
		return fmt.Errorf("sync midcap: %w", err)
	}

	byCohort := map[contracts.Cohort][]contracts.Member{
		contracts.CohortSP500:   sp500,
		contracts.CohortMidcap:  midcap,
		contracts.CohortMegacap: deriveMegacap(sp500),
	}

	for _, cohort := range contracts.AllCohorts() {
		members := byCohort[cohort]
		if err := s.applyCohort(ctx, cohort, members, asOf); err != nil {
			return fmt.Errorf("sync %s: %w", cohort, err)
		}
		s.logger.WithFields(map[string]interface{}{
			"cohort":  string(cohort),
			"members": len(members),
		}).Info("Universe cohort synced")
	}
	return nil
}

func (s *Service) fetchMembers(ctx context.Context, url string) ([]contracts.Member, error) {
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("membership page returned %d", resp.StatusCode)
	}
	return parseMembers(resp.Body)
}

// applyCohort diffs fresh membership against what is stored, logs and
// records the changes, then replaces the stored set.
func (s *Service) applyCohort(ctx context.Context, cohort contracts.Cohort, fresh []contracts.Member, asOf time.Time) error {
	prev, err := s.store.GetMembers(ctx, cohort)
	if err != nil {
		return err
	}

	changes := diffMembers(cohort, prev, fresh, asOf)
	for _, c := range changes {
		s.logger.WithFields(map[string]interface{}{
			"cohort": string(c.Cohort),
			"symbol": c.Symbol,
			"action": c.Action,
		}).Info("Universe membership change")
	}

	if err := s.store.AppendChanges(ctx, changes); err != nil {
		return err
	}
	return s.store.ReplaceMembers(ctx, cohort, fresh)
}

// diffMembers computes membership events. First sync (no prior members)
// produces no events; the whole index arriving is not a change.
func diffMembers(cohort contracts.Cohort, prev, fresh []contracts.Member, asOf time.Time) []Change {
	if len(prev) == 0 {
		return nil
	}

	prevSet := make(map[string]bool, len(prev))
	for _, m := range prev {
		prevSet[m.Symbol] = true
	}
	freshSet := make(map[string]bool, len(fresh))
	for _, m := range fresh {
		freshSet[m.Symbol] = true
	}

	var changes []Change
	for _, m := range fresh {
		if !prevSet[m.Symbol] {
			changes = append(changes, Change{Cohort: cohort, Symbol: m.Symbol, Action: "added", Date: asOf})
		}
	}
	for _, m := range prev {
		if !freshSet[m.Symbol] {
			changes = append(changes, Change{Cohort: cohort, Symbol: m.Symbol, Action: "removed", Date: asOf})
		}
	}
	return changes
}

// deriveMegacap takes the largest S&P 500 names by weight. Alphabet lists
// two share classes; their weights are combined under GOOGL so the company
// occupies one slot.
func deriveMegacap(sp500 []contracts.Member) []contracts.Member {
	merged := make([]contracts.Member, 0, len(sp500))
	var googWeight float64
	googlIdx := -1

	for _, m := range sp500 {
		switch m.Symbol {
		case "GOOG":
			googWeight += m.Weight
			continue
		case "GOOGL":
			googWeight += m.Weight
			googlIdx = len(merged)
			m.Weight = 0 // filled in below
		}
		merged = append(merged, m)
	}
	if googlIdx >= 0 {
		merged[googlIdx].Weight = googWeight
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Weight != merged[j].Weight {
			return merged[i].Weight > merged[j].Weight
		}
		return merged[i].Symbol < merged[j].Symbol
	})

	if len(merged) > megacapSize {
		merged = merged[:megacapSize]
	}
	return merged
}
