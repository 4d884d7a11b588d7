package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"retail-pos/internal/checkout"
	"retail-pos/internal/domain"
	"retail-pos/internal/repository"

	"github.com/google/uuid"
)

// TimeRange selects the reporting window and bucket granularity.
type TimeRange string

const (
	RangeDaily   TimeRange = "daily"
	RangeWeekly  TimeRange = "weekly"
	RangeMonthly TimeRange = "monthly"
	RangeYearly  TimeRange = "yearly"
)

var ErrInvalidTimeRange = errors.New("timeRange must be daily, weekly, monthly or yearly")

// SalesBucket is one point of the sales chart.
type SalesBucket struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ProductRank is one row of the top-products table.
type ProductRank struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// Report is the response of the sales report endpoint.
type Report struct {
	SalesData   []SalesBucket `json:"salesData"`
	TopProducts []ProductRank `json:"topProducts"`
}

// ReportService aggregates the sale ledger for the reports screen.
type ReportService interface {
	SalesReport(ctx context.Context, timeRange TimeRange) (*Report, error)
}

type reportService struct {
	saleRepo repository.SaleRepository
	now      func() time.Time
}

// NewReportService creates a new instance of ReportService
func NewReportService(saleRepo repository.SaleRepository) ReportService {
	return &reportService{saleRepo: saleRepo, now: time.Now}
}

// ParseTimeRange validates a timeRange query value, defaulting to daily
// when empty.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case RangeDaily, RangeWeekly, RangeMonthly, RangeYearly:
		return TimeRange(s), nil
	case "":
		return RangeDaily, nil
	default:
		return "", ErrInvalidTimeRange
	}
}

// WindowStart returns the start of the trailing reporting window for a
// range: 7 days, 28 days, 6 months or 1 year back from now.
func (tr TimeRange) WindowStart(now time.Time) time.Time {
	switch tr {
	case RangeWeekly:
		return now.AddDate(0, 0, -28)
	case RangeMonthly:
		return now.AddDate(0, -6, 0)
	case RangeYearly:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

// BucketKey derives the chart bucket for a sale timestamp. The weekly key
// is "Week N" of the calendar month, not an ISO week; monthly uses the
// short month name. Kept as-is for compatibility with the reports screen.
func (tr TimeRange) BucketKey(t time.Time) string {
	switch tr {
	case RangeWeekly:
		week := int(math.Ceil(float64(t.Day()) / 7))
		return fmt.Sprintf("Week %d", week)
	case RangeMonthly:
		return t.Format("Jan")
	case RangeYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func (s *reportService) SalesReport(ctx context.Context, timeRange TimeRange) (*Report, error) {
	now := s.now()
	sales, err := s.saleRepo.ListCompletedBetween(ctx, timeRange.WindowStart(now), now)
	if err != nil {
		return nil, err
	}

	return &Report{
		SalesData:   BucketSales(sales, timeRange),
		TopProducts: TopProducts(sales, 10),
	}, nil
}

// BucketSales groups sales by the range's bucket key, accumulating total
// amount and count per bucket, sorted ascending by key.
func BucketSales(sales []*domain.Sale, timeRange TimeRange) []SalesBucket {
	buckets := map[string]*SalesBucket{}

	for _, sale := range sales {
		key := timeRange.BucketKey(sale.CreatedAt)
		b, ok := buckets[key]
		if !ok {
			b = &SalesBucket{Date: key}
			buckets[key] = b
		}
		b.Total += sale.Total
		b.Count++
	}

	out := make([]SalesBucket, 0, len(buckets))
	for _, b := range buckets {
		b.Total = checkout.Round2(b.Total)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out
}

// TopProducts ranks products by revenue (sum of item subtotals) across
// the given sales and returns the top n.
func TopProducts(sales []*domain.Sale, n int) []ProductRank {
	type acc struct {
		rank  ProductRank
		order int
	}
	perProduct := map[uuid.UUID]*acc{}

	for _, sale := range sales {
		for _, item := range sale.Items {
			a, ok := perProduct[item.ProductID]
			if !ok {
				name := ""
				if item.Product != nil {
					name = item.Product.Name
				}
				a = &acc{rank: ProductRank{Name: name}, order: len(perProduct)}
				perProduct[item.ProductID] = a
			}
			a.rank.Quantity += item.Quantity
			a.rank.Total += item.Subtotal
		}
	}

	ranked := make([]*acc, 0, len(perProduct))
	for _, a := range perProduct {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].rank.Total != ranked[j].rank.Total {
			return ranked[i].rank.Total > ranked[j].rank.Total
		}
		return ranked[i].order < ranked[j].order
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]ProductRank, len(ranked))
	for i, a := range ranked {
		a.rank.Total = checkout.Round2(a.rank.Total)
		out[i] = a.rank
	}
	return out
}
