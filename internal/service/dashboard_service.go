package service

import (
	"context"
	"time"

	"retail-pos/internal/checkout"
	"retail-pos/internal/domain"
	"retail-pos/internal/repository"
)

// Metric is a dashboard value with its percent change versus yesterday.
type Metric struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// DashboardStats is the at-a-glance comparison of today against yesterday.
type DashboardStats struct {
	TotalSales      Metric `json:"totalSales"`
	ProductsSold    Metric `json:"productsSold"`
	ActiveCustomers Metric `json:"activeCustomers"`
	AverageSale     Metric `json:"averageSale"`
}

// Dashboard is the response of the dashboard endpoint.
type Dashboard struct {
	Stats              DashboardStats `json:"stats"`
	RecentTransactions []*domain.Sale `json:"recentTransactions"`
}

// DashboardService produces the same-day snapshot for the landing screen.
type DashboardService interface {
	Snapshot(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	saleRepo repository.SaleRepository
	now      func() time.Time
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(saleRepo repository.SaleRepository) DashboardService {
	return &dashboardService{saleRepo: saleRepo, now: time.Now}
}

func (s *dashboardService) Snapshot(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)

	todayTotals, err := s.saleRepo.TotalsBetween(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	yesterdayTotals, err := s.saleRepo.TotalsBetween(ctx, yesterday, today)
	if err != nil {
		return nil, err
	}

	recent, err := s.saleRepo.RecentCompleted(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Stats:              BuildStats(todayTotals, yesterdayTotals),
		RecentTransactions: recent,
	}, nil
}

// BuildStats derives the four dashboard metrics from today's and
// yesterday's aggregates.
func BuildStats(today, yesterday repository.DayTotals) DashboardStats {
	todayAvg := averageSale(today)
	yesterdayAvg := averageSale(yesterday)

	return DashboardStats{
		TotalSales: Metric{
			Value:  today.SalesTotal,
			Change: PercentChange(today.SalesTotal, yesterday.SalesTotal),
		},
		ProductsSold: Metric{
			Value:  float64(today.UnitsSold),
			Change: PercentChange(float64(today.UnitsSold), float64(yesterday.UnitsSold)),
		},
		ActiveCustomers: Metric{
			Value:  float64(today.Customers),
			Change: PercentChange(float64(today.Customers), float64(yesterday.Customers)),
		},
		AverageSale: Metric{
			Value:  todayAvg,
			Change: PercentChange(todayAvg, yesterdayAvg),
		},
	}
}

// averageSale is revenue per unit sold, 0 when nothing sold.
func averageSale(t repository.DayTotals) float64 {
	if t.UnitsSold == 0 {
		return 0
	}
	return checkout.Round2(t.SalesTotal / float64(t.UnitsSold))
}

// PercentChange returns (today-yesterday)/yesterday*100, by convention 0
// when yesterday is 0. A zero baseline does not distinguish "no activity"
// from "no change".
func PercentChange(today, yesterday float64) float64 {
	if yesterday == 0 {
		return 0
	}
	return (today - yesterday) / yesterday * 100
}
