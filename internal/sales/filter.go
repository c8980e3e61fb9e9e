package sales

import (
	"sort"
	"strings"
	"time"
)

const saleDateLayout = "2006-01-02"

// parseSaleDate reads a calendar date at local midnight. Full RFC 3339
// timestamps are accepted as well since older records carry them.
func parseSaleDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(saleDateLayout, raw, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// EffectiveDate is the date used to place the sale in a week: the sale date
// when set, otherwise the creation timestamp. A set but unparseable sale date
// does not fall back.
func (s *Sale) EffectiveDate(loc *time.Location) (time.Time, bool) {
	if strings.TrimSpace(s.SaleDate) != "" {
		return parseSaleDate(s.SaleDate, loc)
	}
	if s.CreatedAt != nil && !s.CreatedAt.IsZero() {
		return s.CreatedAt.In(loc), true
	}
	return time.Time{}, false
}

// Matches reports whether any searchable field contains term, ignoring case.
// An empty term matches everything. The term is used as typed, spaces included.
func (s *Sale) Matches(term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	for _, field := range []string{
		s.ItemName, s.Brand, s.Model, s.CustomerName,
		s.CustomerAddress, s.Seller, s.Supplier, s.Note,
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// FilterAndSort keeps the sales whose effective date is inside w and that
// match search, newest sale date first. Sales without a parseable sale date
// sort last; ties keep their input order.
func FilterAndSort(records []*Sale, w Window, search string, loc *time.Location) []*Sale {
	type keyed struct {
		sale *Sale
		key  time.Time
	}

	kept := make([]keyed, 0, len(records))
	for _, sale := range records {
		if sale == nil {
			continue
		}
		at, ok := sale.EffectiveDate(loc)
		if !ok || !w.Contains(at) {
			continue
		}
		if !sale.Matches(search) {
			continue
		}
		key, _ := parseSaleDate(sale.SaleDate, loc)
		kept = append(kept, keyed{sale: sale, key: key})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].key.After(kept[j].key)
	})

	out := make([]*Sale, len(kept))
	for i, k := range kept {
		out[i] = k.sale
	}
	return out
}
