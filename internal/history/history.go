// Package history sorts a shopper's orders and groups them by day.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

type SortBy string

const (
	SortByDate  SortBy = "date"
	SortByTotal SortBy = "total"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Group labels, in display order.
const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
	LabelPrevious  = "Previous"
)

var labels = []string{LabelToday, LabelYesterday, LabelPrevious}

// Group is one day bucket of orders.
type Group struct {
	Label  string          `json:"label"`
	Orders []*models.Order `json:"orders"`
}

// ParseSortBy reads a sort key. An empty string selects the date.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(s)) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByTotal:
		return SortByTotal, nil
	}
	return "", errors.NewValidationError("sortBy", "sortBy must be one of: date, total")
}

// ParseSortOrder reads a direction. An empty string selects descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(s)) {
	case "", Descending:
		return Descending, nil
	case Ascending:
		return Ascending, nil
	}
	return "", errors.NewValidationError("sortOrder", "sortOrder must be one of: asc, desc")
}

// Sort returns a copy of orders sorted by key. Equal keys keep their input
// order.
func Sort(orders []*models.Order, by SortBy, order SortOrder) []*models.Order {
	sorted := make([]*models.Order, len(orders))
	copy(sorted, orders)

	less := func(a, b *models.Order) bool {
		if by == SortByTotal {
			return a.Total.LessThan(b.Total)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == Ascending {
			return less(sorted[i], sorted[j])
		}
		return less(sorted[j], sorted[i])
	})
	return sorted
}

// Categorize sorts orders and splits them into Today, Yesterday and Previous
// relative to now, comparing calendar days in now's location. Groups come
// back in that fixed order; empty groups are left out. Orders without a
// usable timestamp fall into Previous.
func Categorize(orders []*models.Order, by SortBy, order SortOrder, now time.Time) []Group {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)

	buckets := make(map[string][]*models.Order, len(labels))
	for _, o := range Sort(orders, by, order) {
		label := LabelPrevious
		if o.CreatedAt.Valid() {
			day := startOfDay(o.CreatedAt.Time().In(now.Location()))
			switch {
			case day.Equal(today):
				label = LabelToday
			case day.Equal(yesterday):
				label = LabelYesterday
			}
		}
		buckets[label] = append(buckets[label], o)
	}

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		if len(buckets[label]) == 0 {
			continue
		}
		groups = append(groups, Group{Label: label, Orders: buckets[label]})
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
