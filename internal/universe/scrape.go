package universe

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quantfold/momo/internal/contracts"
)

// parseMembers extracts (symbol, name, weight) rows from an index
// membership page. The constituent table carries rank, company, symbol and
// weight columns; rows that do not look like constituents are skipped.
func parseMembers(r io.Reader) ([]contracts.Member, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse membership page: %w", err)
	}

	var members []contracts.Member
	seen := make(map[string]bool)

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		// Columns: # | Company | Symbol | Weight | ...
		name := strings.TrimSpace(cells.Eq(1).Text())
		symbol := strings.TrimSpace(cells.Eq(2).Text())
		weightText := strings.TrimSpace(cells.Eq(3).Text())

		if symbol == "" || seen[symbol] {
			return
		}

		weight, ok := parseWeight(weightText)
		if !ok {
			return
		}

		seen[symbol] = true
		members = append(members, contracts.Member{
			Symbol: symbol,
			Name:   name,
			Weight: weight,
		})
	})

	if len(members) == 0 {
		return nil, fmt.Errorf("no constituent rows found")
	}
	return members, nil
}

// parseWeight handles "6.54%" and plain "6.54" cells.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return w, true
}
