package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"go.uber.org/zap"
)

// Параметры статистики
const (
	statsDays         = 7
	recentClicksLimit = 10
	directReferrer    = "direct"
)

// StatsService строит статистику по ссылкам и клиентам из документа хранилища
type StatsService interface {
	LinkStats(ctx context.Context, code string) (*models.LinkStats, error)
	CustomerStats(ctx context.Context, customerID string) (*models.CustomerStats, error)
}

type statsService struct {
	store     repository.DocumentStore
	customers repository.CustomerRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewStatsService создаёт сервис статистики; now подменяется в тестах
func NewStatsService(store repository.DocumentStore, customers repository.CustomerRepository, logger *zap.Logger, now func() time.Time) StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &statsService{
		store:     store,
		customers: customers,
		logger:    logger,
		now:       now,
	}
}

// LinkStats считает клики ссылки. Все даты в UTC.
func (s *statsService) LinkStats(ctx context.Context, code string) (*models.LinkStats, error) {
	doc := s.store.Read(ctx)

	link, ok := doc.Links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	clicks := doc.Stats[code]

	now := s.now().UTC()
	today := now.Format(time.DateOnly)

	// Дневные корзины за последние 7 дней, от старых к новым
	daily := make([]models.DailyClickStats, statsDays)
	dayIndex := make(map[string]int, statsDays)
	for i := 0; i < statsDays; i++ {
		date := now.AddDate(0, 0, i-(statsDays-1)).Format(time.DateOnly)
		daily[i] = models.DailyClickStats{Date: date}
		dayIndex[date] = i
	}

	hourly := make([]models.HourlyClickStats, 24)
	for h := range hourly {
		hourly[h].Hour = h
	}

	uniqueIPs := make(map[string]struct{})
	referrers := make(map[string]int)

	for _, click := range clicks {
		uniqueIPs[click.IP] = struct{}{}

		ts := click.Timestamp.UTC()
		date := ts.Format(time.DateOnly)
		if i, ok := dayIndex[date]; ok {
			daily[i].Clicks++
		}
		if date == today {
			hourly[ts.Hour()].Clicks++
		}

		ref := click.Referer
		if ref == "" {
			ref = directReferrer
		}
		referrers[ref]++
	}

	out := *link
	return &models.LinkStats{
		Link:         &out,
		TotalClicks:  len(clicks),
		UniqueClicks: len(uniqueIPs),
		DailyClicks:  daily,
		HourlyClicks: hourly,
		Referrers:    referrers,
		RecentClicks: recentClicks(clicks, recentClicksLimit),
	}, nil
}

// recentClicks возвращает последние n кликов, новые первыми
func recentClicks(clicks []models.Click, n int) []models.Click {
	recent := make([]models.Click, len(clicks))
	copy(recent, clicks)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > n {
		recent = recent[:n]
	}
	return recent
}

// CustomerStats суммирует ссылки и клики клиента. Неизвестный клиент считается
// клиентом бесплатного тарифа.
func (s *statsService) CustomerStats(ctx context.Context, customerID string) (*models.CustomerStats, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}

	plan := models.PlanFree
	var fee float64

	customer, err := s.customers.Get(ctx, customerID)
	switch {
	case err == nil:
		if customer.Plan != "" {
			plan = customer.Plan
		}
		fee = customer.MonthlyFee
	case errors.Is(err, repository.ErrCustomerNotFound):
		s.logger.Debug("Customer has no account record", zap.String("customer_id", customerID))
	default:
		return nil, err
	}

	doc := s.store.Read(ctx)
	stats := &models.CustomerStats{
		PlanLimit:  plan.LinkLimit(),
		Plan:       string(plan),
		MonthlyFee: fee,
	}
	for code, link := range doc.Links {
		if link.CustomerID != customerID {
			continue
		}
		stats.TotalLinks++
		stats.TotalClicks += len(doc.Stats[code])
	}
	return stats, nil
}
