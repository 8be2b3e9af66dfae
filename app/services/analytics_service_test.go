package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charvilabs/charvi/app/repositories"
)

type fakeAnalyticsStore struct {
	sales      []repositories.SalesByDay
	categories []repositories.CategoryRevenue
	statuses   []repositories.StatusCount
	lastSince  time.Time
}

func (f *fakeAnalyticsStore) SalesByDay(_ context.Context, since time.Time) ([]repositories.SalesByDay, error) {
	f.lastSince = since
	return f.sales, nil
}

func (f *fakeAnalyticsStore) RevenueByCategory(_ context.Context) ([]repositories.CategoryRevenue, error) {
	return f.categories, nil
}

func (f *fakeAnalyticsStore) CountByStatus(_ context.Context) ([]repositories.StatusCount, error) {
	return f.statuses, nil
}

func TestDashboardWindowsDefault(t *testing.T) {
	store := &fakeAnalyticsStore{
		sales:      []repositories.SalesByDay{{Day: "2026-03-13", Orders: 2, Revenue: 5498}},
		categories: []repositories.CategoryRevenue{{Category: "sarees", Revenue: 5498}},
		statuses:   []repositories.StatusCount{{Status: "Pending", Count: 2}},
	}
	svc := NewAnalyticsService(store)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	dash, err := svc.Dashboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -30), store.lastSince)
	assert.Len(t, dash.Sales, 1)
	assert.Len(t, dash.Categories, 1)
	assert.Len(t, dash.Statuses, 1)
}

func TestDailyDigest(t *testing.T) {
	store := &fakeAnalyticsStore{
		sales: []repositories.SalesByDay{
			{Day: "2026-03-13", Orders: 3, Revenue: 7497},
		},
	}
	svc := NewAnalyticsService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC) }

	body, ok, err := svc.DailyDigest(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, body, "2026-03-13: 3 orders, revenue 7497.00")
	assert.Contains(t, body, "Total revenue: 7497.00")
}

func TestDailyDigestNoSales(t *testing.T) {
	svc := NewAnalyticsService(&fakeAnalyticsStore{})
	_, ok, err := svc.DailyDigest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
