package report

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/internal/ledger"
	"github.com/quantfold/momo/pkg/logger"
)

// Generator renders the static report site. It reads ledger and ranking
// state through repositories and never mutates either.
type Generator struct {
	logger *logger.Logger
	repo   contracts.LedgerRepository
	outDir string

	momentum    *template.Template
	performance *template.Template
	index       *template.Template
}

// NewGenerator creates a report generator writing into outDir.
func NewGenerator(log *logger.Logger, repo contracts.LedgerRepository, outDir string) (*Generator, error) {
	funcs := template.FuncMap{
		"pct": func(v float64) string {
			return fmt.Sprintf("%+.1f%%", v*100)
		},
		"sign": func(v float64) string {
			if v < 0 {
				return "neg"
			}
			return "pos"
		},
		"date": func(t interface{}) string {
			switch d := t.(type) {
			case time.Time:
				return d.Format("2006-01-02")
			case *time.Time:
				return d.Format("2006-01-02")
			}
			return ""
		},
		"price": func(p *float64) string {
			return fmt.Sprintf("%.2f", *p)
		},
	}

	g := &Generator{logger: log, repo: repo, outDir: outDir}
	var err error
	if g.momentum, err = template.New("momentum").Funcs(funcs).Parse(momentumTemplate); err != nil {
		return nil, fmt.Errorf("parse momentum template: %w", err)
	}
	if g.performance, err = template.New("performance").Funcs(funcs).Parse(performanceTemplate); err != nil {
		return nil, fmt.Errorf("parse performance template: %w", err)
	}
	if g.index, err = template.New("index").Funcs(funcs).Parse(indexTemplate); err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	return g, nil
}

type momentumRow struct {
	contracts.RankSnapshot
	Signal bool
}

type momentumCohort struct {
	Name    string
	Ranked  int
	Omitted int
	Rows    []momentumRow
	Dropped []contracts.DroppedSignal
}

// WriteMomentum renders one period's momentum report from the ranking
// results, top picks only.
func (g *Generator) WriteMomentum(results []*contracts.RankingResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("no ranking results to report")
	}
	period := results[0].Period

	data := struct {
		Period      string
		Cohorts     []momentumCohort
		GeneratedAt string
	}{
		Period:      period.Format("2006-01-02"),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for _, r := range results {
		signals := make(map[string]bool, len(r.Signals))
		for _, s := range r.Signals {
			signals[s.Ticker] = true
		}

		c := momentumCohort{
			Name:    string(r.Cohort),
			Ranked:  len(r.Snapshots),
			Omitted: r.Omitted,
			Dropped: r.Dropped,
		}
		for _, pick := range r.TopPicks {
			c.Rows = append(c.Rows, momentumRow{RankSnapshot: pick, Signal: signals[pick.Ticker]})
		}
		data.Cohorts = append(data.Cohorts, c)
	}

	name := fmt.Sprintf("momentum_%s.html", period.Format("2006-01-02"))
	return name, g.render(g.momentum, name, data)
}

// WritePerformance renders the ledger performance report.
func (g *Generator) WritePerformance(ctx context.Context) (string, error) {
	perf, err := ledger.ComputePerformance(ctx, g.repo)
	if err != nil {
		return "", fmt.Errorf("compute performance: %w", err)
	}

	open, err := g.repo.OpenStockEntries(ctx, "")
	if err != nil {
		return "", fmt.Errorf("load open entries: %w", err)
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].SignalDate.Equal(open[j].SignalDate) {
			return open[i].SignalDate.After(open[j].SignalDate)
		}
		return open[i].Ticker < open[j].Ticker
	})

	date := time.Now().UTC().Format("2006-01-02")
	data := struct {
		Date        string
		Perf        *ledger.Performance
		Open        []*contracts.StockEntry
		GeneratedAt string
	}{
		Date:        date,
		Perf:        perf,
		Open:        open,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	name := fmt.Sprintf("performance_%s.html", date)
	return name, g.render(g.performance, name, data)
}

// WriteIndex rebuilds index.html from the reports present in the output
// directory, newest first. The date embedded in each file name is the sort
// key, so regenerated reports keep their place.
func (g *Generator) WriteIndex() error {
	entries, err := os.ReadDir(g.outDir)
	if err != nil {
		return fmt.Errorf("scan report dir: %w", err)
	}

	var momentum, performance []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "momentum_") && strings.HasSuffix(name, ".html"):
			momentum = append(momentum, name)
		case strings.HasPrefix(name, "performance_") && strings.HasSuffix(name, ".html"):
			performance = append(performance, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(momentum)))
	sort.Sort(sort.Reverse(sort.StringSlice(performance)))

	data := struct {
		Momentum    []string
		Performance []string
	}{momentum, performance}

	return g.render(g.index, "index.html", data)
}

func (g *Generator) render(tpl *template.Template, name string, data interface{}) error {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(g.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if err := tpl.Execute(f, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	g.logger.WithField("report", path).Info("Report written")
	return nil
}
