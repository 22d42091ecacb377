package queue

import (
	"context"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	FilterDaily   = "daily"
	FilterMonthly = "monthly"
)

const (
	dailyPeriodLayout   = "January 2, 2006"
	monthlyPeriodLayout = "January 2006"
	monthLayout         = "2006-01"
)

type DailySummary struct {
	Period         string  `json:"period"`
	Date           string  `json:"date"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Waiting        int     `json:"waiting"`
	Called         int     `json:"called"`
	CompletionRate float64 `json:"completion_rate"`
}

type DayStat struct {
	Date      string `json:"date"`
	Day       int    `json:"day"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

type MonthlySummary struct {
	Period         string    `json:"period"`
	Month          string    `json:"month"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	CompletionRate float64   `json:"completion_rate"`
	PerDay         []DayStat `json:"per_day"`
}

func (s *Service) DailySummary(ctx context.Context, date time.Time) (DailySummary, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue.DailySummary", date)
	defer span.End()

	counts, err := s.store.CountByDate(ctx, date, date)
	if err != nil {
		err = store.Wrap("daily_summary", err)
		s.fail(span, "daily_summary", err)
		return DailySummary{}, err
	}

	summary := DailySummary{
		Period: date.Format(dailyPeriodLayout),
		Date:   models.FormatDate(date),
	}
	for _, count := range counts {
		summary.Total += count.Total()
		summary.Completed += count.Completed
		summary.Waiting += count.Waiting
		summary.Called += count.Called
	}
	summary.CompletionRate = CompletionRate(summary.Completed, summary.Total)
	return summary, nil
}

// MonthlySummary reports the month containing month with one entry for every
// calendar day, including days without tickets.
func (s *Service) MonthlySummary(ctx context.Context, month time.Time) (MonthlySummary, error) {
	days := models.MonthDays(models.DateOf(month, nil))
	first, last := days[0], days[len(days)-1]
	ctx, span := s.startSpan(ctx, "queue.MonthlySummary", first)
	defer span.End()

	counts, err := s.store.CountByDate(ctx, first, last)
	if err != nil {
		err = store.Wrap("monthly_summary", err)
		s.fail(span, "monthly_summary", err)
		return MonthlySummary{}, err
	}
	byDate := lo.KeyBy(counts, func(count models.DayCount) string {
		return models.FormatDate(count.Date)
	})

	summary := MonthlySummary{
		Period: first.Format(monthlyPeriodLayout),
		Month:  first.Format(monthLayout),
	}
	summary.PerDay = lo.Map(days, func(day time.Time, _ int) DayStat {
		count := byDate[models.FormatDate(day)]
		return DayStat{
			Date:      models.FormatDate(day),
			Day:       day.Day(),
			Total:     count.Total(),
			Completed: count.Completed,
		}
	})
	for _, stat := range summary.PerDay {
		summary.Total += stat.Total
		summary.Completed += stat.Completed
	}
	summary.CompletionRate = CompletionRate(summary.Completed, summary.Total)
	return summary, nil
}

// Report returns the daily or monthly summary for date.
func (s *Service) Report(ctx context.Context, filter string, date time.Time) (interface{}, error) {
	switch filter {
	case "", FilterDaily:
		return s.DailySummary(ctx, date)
	case FilterMonthly:
		return s.MonthlySummary(ctx, date)
	default:
		return nil, ErrUnknownFilter
	}
}

// CompletionRate is completed/total as a percentage rounded half up to one
// decimal. It is 0 when total is 0.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(completed)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 1)
	return rate.InexactFloat64()
}
