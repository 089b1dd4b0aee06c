package history

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

var kolkata = time.FixedZone("IST", 5*60*60+30*60)

func order(id string, created time.Time, total int64) *models.Order {
	return &models.Order{
		ID:        id,
		CreatedAt: models.At(created),
		Total:     decimal.NewFromInt(total),
	}
}

func ids(orders []*models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func labelsOf(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label
	}
	return out
}

func TestCategorize_DayBoundaries(t *testing.T) {
	now := time.Date(2025, time.March, 10, 15, 30, 0, 0, kolkata)
	midnight := time.Date(2025, time.March, 10, 0, 0, 0, 0, kolkata)

	tests := []struct {
		name    string
		created time.Time
		want    string
	}{
		{"midnight today", midnight, LabelToday},
		{"now", now, LabelToday},
		{"one second before midnight", midnight.Add(-time.Second), LabelYesterday},
		{"20 hours before midnight", midnight.Add(-20 * time.Hour), LabelYesterday},
		{"24 hours before midnight", midnight.Add(-24 * time.Hour), LabelYesterday},
		{"25 hours before midnight", midnight.Add(-25 * time.Hour), LabelPrevious},
		{"30 hours before midnight", midnight.Add(-30 * time.Hour), LabelPrevious},
		{"a month ago", now.AddDate(0, -1, 0), LabelPrevious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Categorize([]*models.Order{order("o1", tt.created, 100)}, SortByDate, Descending, now)
			require.Len(t, groups, 1)
			assert.Equal(t, tt.want, groups[0].Label)
		})
	}
}

func TestCategorize_UsesCallerLocation(t *testing.T) {
	// 20:00 UTC on the 9th is 01:30 IST on the 10th.
	created := time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, kolkata)

	groups := Categorize([]*models.Order{order("o1", created, 1)}, SortByDate, Descending, now)
	require.Len(t, groups, 1)
	assert.Equal(t, LabelToday, groups[0].Label)
}

func TestCategorize_FixedGroupOrder(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, kolkata)
	orders := []*models.Order{
		order("old", now.AddDate(0, 0, -5), 300),
		order("yday", now.AddDate(0, 0, -1), 100),
		order("today", now.Add(-time.Hour), 200),
	}

	// Ascending by date visits Previous first; groups still come out in
	// display order.
	groups := Categorize(orders, SortByDate, Ascending, now)
	assert.Equal(t, []string{LabelToday, LabelYesterday, LabelPrevious}, labelsOf(groups))

	groups = Categorize(orders, SortByTotal, Descending, now)
	assert.Equal(t, []string{LabelToday, LabelYesterday, LabelPrevious}, labelsOf(groups))
}

func TestCategorize_OmitsEmptyGroups(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, kolkata)
	orders := []*models.Order{
		order("a", now.AddDate(0, 0, -7), 1),
		order("b", now.Add(-time.Minute), 2),
	}

	groups := Categorize(orders, SortByDate, Descending, now)
	assert.Equal(t, []string{LabelToday, LabelPrevious}, labelsOf(groups))
	assert.Empty(t, Categorize(nil, SortByDate, Descending, now))
}

func TestCategorize_IsPartition(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, kolkata)

	var orders []*models.Order
	for i := 0; i < 40; i++ {
		created := now.Add(-time.Duration(i*7) * time.Hour)
		orders = append(orders, order(fmt.Sprintf("o%02d", i), created, int64((i*37)%11)))
	}
	orders = append(orders, &models.Order{ID: "broken", Total: decimal.NewFromInt(5)})

	for _, by := range []SortBy{SortByDate, SortByTotal} {
		for _, dir := range []SortOrder{Ascending, Descending} {
			groups := Categorize(orders, by, dir, now)

			seen := make(map[string]int)
			for _, g := range groups {
				for _, o := range g.Orders {
					seen[o.ID]++
				}
			}

			assert.Len(t, seen, len(orders), "%s %s", by, dir)
			for _, o := range orders {
				assert.Equal(t, 1, seen[o.ID], "order %s in %s %s", o.ID, by, dir)
			}
		}
	}
}

func TestCategorize_PreservesSortWithinGroup(t *testing.T) {
	now := time.Date(2025, time.March, 10, 23, 0, 0, 0, kolkata)
	orders := []*models.Order{
		order("a", now.Add(-1*time.Hour), 50),
		order("b", now.Add(-2*time.Hour), 500),
		order("c", now.Add(-3*time.Hour), 5),
	}

	groups := Categorize(orders, SortByTotal, Descending, now)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"b", "a", "c"}, ids(groups[0].Orders))

	groups = Categorize(orders, SortByDate, Ascending, now)
	assert.Equal(t, []string{"c", "b", "a"}, ids(groups[0].Orders))
}

func TestSort_ReverseWithoutTies(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	orders := []*models.Order{
		order("3", base.Add(3*time.Hour), 1),
		order("1", base.Add(1*time.Hour), 1),
		order("4", base.Add(4*time.Hour), 1),
		order("2", base.Add(2*time.Hour), 1),
	}

	desc := Sort(orders, SortByDate, Descending)
	asc := Sort(desc, SortByDate, Ascending)

	reversed := make([]string, 0, len(desc))
	for i := len(desc) - 1; i >= 0; i-- {
		reversed = append(reversed, desc[i].ID)
	}

	if diff := cmp.Diff(reversed, ids(asc)); diff != "" {
		t.Errorf("ascending is not the reverse of descending (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(desc))
}

func TestSort_StableOnTies(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	orders := []*models.Order{
		order("x", base, 10),
		order("y", base.Add(time.Hour), 10),
		order("z", base.Add(2*time.Hour), 10),
	}

	assert.Equal(t, []string{"x", "y", "z"}, ids(Sort(orders, SortByTotal, Descending)))
	assert.Equal(t, []string{"x", "y", "z"}, ids(Sort(orders, SortByTotal, Ascending)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	orders := []*models.Order{order("b", base, 2), order("a", base, 1)}

	_ = Sort(orders, SortByTotal, Ascending)
	assert.Equal(t, []string{"b", "a"}, ids(orders))
}

func TestCategorize_StoredTimestampShapes(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	docs := []string{
		`{"id":"iso","total":1,"createdAt":"2025-03-10T08:00:00Z"}`,
		`{"id":"millis","total":2,"createdAt":1741521600000}`,
		`{"id":"store","total":3,"createdAt":{"seconds":1741000000,"nanoseconds":0}}`,
		`{"id":"bogus","total":4,"createdAt":true}`,
	}

	var orders []*models.Order
	for _, doc := range docs {
		var o models.Order
		require.NoError(t, json.Unmarshal([]byte(doc), &o))
		orders = append(orders, &o)
	}

	groups := Categorize(orders, SortByDate, Descending, now)
	got := make(map[string][]string)
	for _, g := range groups {
		got[g.Label] = ids(g.Orders)
	}

	want := map[string][]string{
		LabelToday:     {"iso"},
		LabelYesterday: {"millis"},
		LabelPrevious:  {"store", "bogus"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected grouping (-want +got):\n%s", diff)
	}
}

func TestParseSort(t *testing.T) {
	by, err := ParseSortBy("")
	require.NoError(t, err)
	assert.Equal(t, SortByDate, by)

	by, err = ParseSortBy("TOTAL")
	require.NoError(t, err)
	assert.Equal(t, SortByTotal, by)

	_, err = ParseSortBy("price")
	assert.Error(t, err)

	dir, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, Descending, dir)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}
