/*
normalize.go - Ledger Normalizer

PURPOSE:
  Converts raw transaction records from an external feed into the
  canonical posted-transaction stream the engine consumes: one resolved
  date, a signed decimal amount, and category labels. Unposted and
  malformed rows are excluded and counted, never fatal - the posture of
  a reporting tool, not a payments system.

NORMALIZATION RULES:
  Date:     posted date, falling back to authorized date
  Amount:   currency formatting ("$", ",", whitespace) stripped
  Status:   only "posted" (case-insensitive) participates
  Mapping:  detailed -> primary category from the most recent row seen

SEE ALSO:
  - errors.go: SkipReason / NormalizeReport
  - engine.go: Applies the ledger start cutoff downstream
*/
package envelope

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are the accepted feed date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
}

// ParseDate resolves a feed date string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseMoney parses a currency-formatted amount ("-$1,234.56") into a
// signed decimal.
func ParseMoney(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Normalize converts raw rows into the canonical posted-transaction stream,
// sorted by date. It also derives the detailed -> primary category mapping
// from the most recent transaction per detailed category, and reports every
// excluded row.
//
// Note: Normalize keeps ALL posted transactions regardless of the ledger
// start date. The engine applies the start cutoff for envelope aggregation;
// the full feed still drives bank-balance reconstruction.
func Normalize(raw []RawTransaction) ([]Transaction, CategoryMapping, NormalizeReport) {
	report := NormalizeReport{
		Total:    len(raw),
		ByReason: make(map[SkipReason]int),
	}
	skip := func(r RawTransaction, reason SkipReason) {
		report.Skipped = append(report.Skipped, SkippedRecord{
			Reason:      reason,
			Description: r.Description,
			Raw:         r,
		})
		report.ByReason[reason]++
	}

	var txns []Transaction
	for _, r := range raw {
		if !strings.EqualFold(strings.TrimSpace(r.Status), "posted") {
			skip(r, SkipUnposted)
			continue
		}

		date, err := ParseDate(r.PostedDate)
		if err != nil {
			date, err = ParseDate(r.AuthorizedDate)
		}
		if err != nil {
			skip(r, SkipBadDate)
			continue
		}

		if strings.TrimSpace(r.Amount) == "" {
			skip(r, SkipMissingAmount)
			continue
		}
		amount, err := ParseMoney(r.Amount)
		if err != nil {
			skip(r, SkipBadAmount)
			continue
		}

		txns = append(txns, Transaction{
			Date:        date,
			Month:       MonthOf(date),
			Amount:      round2(amount),
			Description: r.Description,
			Detailed:    r.Detailed,
			Primary:     r.Primary,
		})
	}
	report.Kept = len(txns)

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.Before(txns[j].Date)
	})

	// Most recent row wins: walk in date order so later rows overwrite.
	mapping := make(CategoryMapping)
	for _, tx := range txns {
		if tx.Detailed != "" && tx.Primary != "" {
			mapping[tx.Detailed] = tx.Primary
		}
	}

	return txns, mapping, report
}
