package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/internal/options"
	"github.com/quantfold/momo/pkg/logger"
)

// contractSelector is the slice of options.Selector the ledger needs.
type contractSelector interface {
	Select(ctx context.Context, underlying string, spot float64, asOf time.Time, profile contracts.StrategyProfile) (*contracts.OptionContract, error)
}

// Service applies each week's signal set to the position ledger: new
// signals open entries, held signals get missing option shadows backfilled,
// dropped signals stop.
type Service struct {
	logger   *logger.Logger
	repo     contracts.LedgerRepository
	selector contractSelector
}

// NewService creates a ledger service.
func NewService(log *logger.Logger, repo contracts.LedgerRepository, selector contractSelector) *Service {
	return &Service{logger: log, repo: repo, selector: selector}
}

// ProcessSignals applies one cohort's ranking result to the ledger.
// spots maps ticker to the period's close, used for option targeting.
func (s *Service) ProcessSignals(ctx context.Context, result *contracts.RankingResult, spots map[string]float64) error {
	open, err := s.repo.OpenStockEntries(ctx, result.Cohort)
	if err != nil {
		return fmt.Errorf("load open %s entries: %w", result.Cohort, err)
	}
	openByTicker := make(map[string]*contracts.StockEntry, len(open))
	for _, e := range open {
		openByTicker[e.Ticker] = e
	}

	signalSet := make(map[string]bool, len(result.Signals))
	for _, sig := range result.Signals {
		signalSet[sig.Ticker] = true

		entry := openByTicker[sig.Ticker]
		if entry == nil {
			entry = &contracts.StockEntry{
				Ticker:     sig.Ticker,
				Cohort:     result.Cohort,
				SignalDate: sig.StreakStart,
				Status:     contracts.StatusPendingEntry,
				UserAction: contracts.ActionWatch,
				Streak:     sig.Streak,
			}
			if err := s.repo.InsertStockEntry(ctx, entry); err != nil {
				return fmt.Errorf("open entry %s: %w", entry.TradeID(), err)
			}
			s.logger.WithFields(map[string]interface{}{
				"trade_id": entry.TradeID(),
				"cohort":   string(result.Cohort),
				"rank":     sig.CurrentRank,
			}).Info("Opened stock entry")
		} else if entry.Streak != sig.Streak {
			entry.Streak = sig.Streak
			if err := s.repo.UpdateStockEntry(ctx, entry); err != nil {
				return fmt.Errorf("update streak %s: %w", entry.TradeID(), err)
			}
		}

		if err := s.shadowProfiles(ctx, entry, spots[sig.Ticker], result.Period); err != nil {
			return err
		}
	}

	// Open entries whose ticker left the signal set are dropped.
	for _, e := range open {
		if signalSet[e.Ticker] || e.DropDate != nil {
			continue
		}
		if err := s.markDropped(ctx, e, result.Period); err != nil {
			return err
		}
	}
	return nil
}

// shadowProfiles makes sure the entry has all three option shadows,
// selecting contracts for whichever are still missing. A selection miss is
// logged and retried on the next run while the entry stays open.
func (s *Service) shadowProfiles(ctx context.Context, entry *contracts.StockEntry, spot float64, asOf time.Time) error {
	if spot <= 0 {
		return nil
	}

	existing, err := s.repo.OptionEntriesFor(ctx, entry.Ticker, entry.SignalDate)
	if err != nil {
		return fmt.Errorf("load shadows %s: %w", entry.TradeID(), err)
	}
	have := make(map[string]bool, len(existing))
	for _, o := range existing {
		have[o.Profile] = true
	}

	for _, profile := range contracts.StrategyProfiles() {
		if have[profile.Name] {
			continue
		}

		picked, err := s.selector.Select(ctx, entry.Ticker, spot, asOf, profile)
		if errors.Is(err, options.ErrNoContract) {
			s.logger.WithFields(map[string]interface{}{
				"trade_id": entry.TradeID(),
				"profile":  profile.Name,
			}).Warn("No contract for shadow; will retry next run")
			continue
		}
		if err != nil {
			return fmt.Errorf("select %s shadow for %s: %w", profile.Name, entry.TradeID(), err)
		}

		shadow := &contracts.OptionEntry{
			Ticker:         entry.Ticker,
			SignalDate:     entry.SignalDate,
			Profile:        profile.Name,
			ContractSymbol: picked.Symbol,
			Strike:         picked.Strike,
			Expiration:     picked.Expiration,
			Type:           picked.Type,
			Status:         contracts.StatusPendingEntry,
		}
		if err := s.repo.InsertOptionEntry(ctx, shadow); err != nil {
			return fmt.Errorf("open shadow %s/%s: %w", entry.TradeID(), profile.Name, err)
		}
		s.logger.WithFields(map[string]interface{}{
			"trade_id": entry.TradeID(),
			"profile":  profile.Name,
			"contract": picked.Symbol,
		}).Info("Opened option shadow")
	}
	return nil
}

// markDropped records a signal drop. A filled entry moves to PENDING_EXIT
// and resolves its exit on the next reconciliation. An unfilled entry keeps
// waiting: its fill may be late rather than absent, so it stays
// PENDING_ENTRY with the drop date set and the reconciler terminates it
// only once the first available bar lands on or after the drop.
func (s *Service) markDropped(ctx context.Context, e *contracts.StockEntry, period time.Time) error {
	dropDate := period
	e.DropDate = &dropDate

	if e.EntryPrice != nil {
		e.Status = contracts.StatusPendingExit
	}
	if err := s.repo.UpdateStockEntry(ctx, e); err != nil {
		return fmt.Errorf("mark dropped %s: %w", e.TradeID(), err)
	}

	shadows, err := s.repo.OptionEntriesFor(ctx, e.Ticker, e.SignalDate)
	if err != nil {
		return fmt.Errorf("load shadows %s: %w", e.TradeID(), err)
	}
	for _, o := range shadows {
		if !o.Status.Open() {
			continue
		}
		switch {
		case e.EntryPrice == nil:
			// Shadow follows the stock: entry still unresolved, fate
			// decided by the reconciler.
		case o.EntryPrice == nil:
			// Stock entered weeks ago and the contract close never
			// published. Freeze with no prices recorded.
			o.Status = contracts.StatusClosed
			if err := s.repo.UpdateOptionEntry(ctx, o); err != nil {
				return fmt.Errorf("freeze shadow %s/%s: %w", o.TradeID(), o.Profile, err)
			}
		default:
			o.Status = contracts.StatusPendingExit
			if err := s.repo.UpdateOptionEntry(ctx, o); err != nil {
				return fmt.Errorf("drop shadow %s/%s: %w", o.TradeID(), o.Profile, err)
			}
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"trade_id": e.TradeID(),
		"streak":   e.Streak,
		"status":   string(e.Status),
		"shadows":  len(shadows),
	}).Info("Signal dropped")
	return nil
}
