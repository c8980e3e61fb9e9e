package sales

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReturnPatch is a partial update of a return record. Nil fields are left
// untouched; ClearReturnedAt removes returnedAt.
type ReturnPatch struct {
	ItemName        *string    `json:"itemName,omitempty"`
	Note            *string    `json:"note,omitempty"`
	Seller          *string    `json:"seller,omitempty"`
	SalePriceCZK    *float64   `json:"salePriceCzk,omitempty"`
	DeliveryCity    *string    `json:"deliveryCity,omitempty"`
	CustomerAddress *string    `json:"customerAddress,omitempty"`
	Phone1          *string    `json:"phone1,omitempty"`
	Phone2          *string    `json:"phone2,omitempty"`
	DepositCZK      *float64   `json:"depositCzk,omitempty"`
	Returned        *bool      `json:"returned,omitempty"`
	ReturnedAt      *time.Time `json:"returnedAt,omitempty"`
	ClearReturnedAt bool       `json:"clearReturnedAt,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// Apply merges the patch into r.
func (p ReturnPatch) Apply(r *Return) {
	setString(&r.ItemName, p.ItemName)
	setString(&r.Note, p.Note)
	setString(&r.Seller, p.Seller)
	setString(&r.DeliveryCity, p.DeliveryCity)
	setString(&r.CustomerAddress, p.CustomerAddress)
	setString(&r.Phone1, p.Phone1)
	setString(&r.Phone2, p.Phone2)
	if p.SalePriceCZK != nil {
		r.SalePriceCZK = *p.SalePriceCZK
	}
	if p.DepositCZK != nil {
		r.DepositCZK = *p.DepositCZK
	}
	if p.Returned != nil {
		r.Returned = *p.Returned
	}
	if p.ReturnedAt != nil {
		at := *p.ReturnedAt
		r.ReturnedAt = &at
	}
	if p.ClearReturnedAt {
		r.ReturnedAt = nil
	}
	if p.CreatedAt != nil {
		at := *p.CreatedAt
		r.CreatedAt = &at
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ReturnFromSale snapshots the sale fields a return record carries. Returned
// and deposit are left out so an existing record keeps its state.
func ReturnFromSale(s *Sale, now time.Time) ReturnPatch {
	price := s.SalePriceCZK
	return ReturnPatch{
		ItemName:        &s.ItemName,
		Note:            &s.Note,
		Seller:          &s.Seller,
		SalePriceCZK:    &price,
		DeliveryCity:    &s.DeliveryCity,
		CustomerAddress: &s.CustomerAddress,
		Phone1:          &s.Phone1,
		Phone2:          &s.Phone2,
		CreatedAt:       &now,
	}
}

// ToggleReturned flips the returned flag. Marking as returned stamps now,
// unmarking clears the stamp.
func ToggleReturned(r *Return, now time.Time) ReturnPatch {
	next := !r.Returned
	patch := ReturnPatch{Returned: &next}
	if next {
		patch.ReturnedAt = &now
	} else {
		patch.ClearReturnedAt = true
	}
	return patch
}

// ParseDeposit reads a deposit typed with either a decimal comma or point.
// Anything unparseable is 0.
func ParseDeposit(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FilterReturns keeps the returns created inside w, newest first.
func FilterReturns(records []*Return, w Window) []*Return {
	out := make([]*Return, 0, len(records))
	for _, r := range records {
		if r == nil || r.CreatedAt == nil || !w.Contains(*r.CreatedAt) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(*out[j].CreatedAt)
	})
	return out
}

// ReturnCounters feed the counter row above the returns table.
type ReturnCounters struct {
	Total        int     `json:"total"`
	Returned     int     `json:"returned"`
	Remaining    int     `json:"remaining"`
	DepositTotal float64 `json:"depositTotal"`
}

// CountReturns counts records by their returned flag.
func CountReturns(records []*Return) ReturnCounters {
	var c ReturnCounters
	for _, r := range records {
		if r == nil {
			continue
		}
		c.Total++
		if r.Returned {
			c.Returned++
		}
		c.DepositTotal += r.DepositCZK
	}
	c.Remaining = c.Total - c.Returned
	return c
}
