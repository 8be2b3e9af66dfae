package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/collection"
)

// AnalyticsStore runs the admin aggregation pipelines.
type AnalyticsStore interface {
	SalesByDay(ctx context.Context, since time.Time) ([]repositories.SalesByDay, error)
	RevenueByCategory(ctx context.Context) ([]repositories.CategoryRevenue, error)
	CountByStatus(ctx context.Context) ([]repositories.StatusCount, error)
}

// Dashboard is the admin analytics snapshot.
type Dashboard struct {
	Sales      []repositories.SalesByDay      `json:"sales"`
	Categories []repositories.CategoryRevenue `json:"categories"`
	Statuses   []repositories.StatusCount     `json:"statuses"`
}

// AnalyticsService assembles the admin dashboard and the daily sales digest.
type AnalyticsService struct {
	analytics AnalyticsStore
	now       func() time.Time
}

func NewAnalyticsService(analytics AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, now: time.Now}
}

// Dashboard returns the last `days` days of sales plus category and status
// breakdowns.
func (s *AnalyticsService) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	if days < 1 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	sales, err := s.analytics.SalesByDay(ctx, since)
	if err != nil {
		return nil, apperr.Upstream("could not aggregate sales", err)
	}
	categories, err := s.analytics.RevenueByCategory(ctx)
	if err != nil {
		return nil, apperr.Upstream("could not aggregate categories", err)
	}
	statuses, err := s.analytics.CountByStatus(ctx)
	if err != nil {
		return nil, apperr.Upstream("could not aggregate statuses", err)
	}

	return &Dashboard{Sales: sales, Categories: categories, Statuses: statuses}, nil
}

// DailyDigest renders yesterday's sales as an HTML email body for the shop
// owner. ok is false when there was nothing to report.
func (s *AnalyticsService) DailyDigest(ctx context.Context) (string, bool, error) {
	since := s.now().UTC().AddDate(0, 0, -1)

	sales, err := s.analytics.SalesByDay(ctx, since)
	if err != nil {
		return "", false, apperr.Upstream("could not aggregate sales", err)
	}
	if len(sales) == 0 {
		return "", false, nil
	}

	lines := collection.Map(sales, func(day repositories.SalesByDay) string {
		return fmt.Sprintf("<li>%s: %d orders, revenue %.2f</li>", day.Day, day.Orders, day.Revenue)
	})
	revenue := collection.Sum(sales, func(day repositories.SalesByDay) float64 { return day.Revenue })

	body := fmt.Sprintf("<h2>Charvi daily sales</h2><ul>%s</ul><p>Total revenue: %.2f</p>",
		strings.Join(lines, ""), revenue)
	return body, true, nil
}
