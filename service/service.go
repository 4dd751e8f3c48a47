package service

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"salesapi/forecast"
	"salesapi/metrics"
	"salesapi/models"
	"salesapi/repository"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=./mocks/mock_repository.go -package=mocks salesapi/service Repository

type Repository interface {
	ListSales(ctx context.Context) ([]models.Sale, error)
	CreateSale(ctx context.Context, date time.Time, amount float64) (models.Sale, error)
	UpdateSale(ctx context.Context, id int, patch models.SalePatch) (models.Sale, error)
	DeleteSale(ctx context.Context, id int) error
}

type Service struct {
	repo       Repository
	logger     *zap.Logger
	metrics    *metrics.Metrics
	sortByDate bool
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDateOrdering makes Predict sort sales by date before fitting. Without it
// the position of a sale in the list returned by the store is its time axis.
func WithDateOrdering(enabled bool) Option {
	return func(s *Service) {
		s.sortByDate = enabled
	}
}

func NewService(repo Repository, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := Service{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// SaleInput is a create or update request. Nil means the field was not sent.
type SaleInput struct {
	Date   *string
	Amount *float64
}

type Prediction struct {
	NextAmount float64
	Line       forecast.Line
	Points     int
	Chart      []byte
}

func (s Service) ListSales(ctx context.Context) ([]models.Sale, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		s.logger.Error("failed to list sales", storeFault(err)...)
		return nil, internal("Failed to retrieve sales", err)
	}
	return sales, nil
}

func (s Service) CreateSale(ctx context.Context, in SaleInput) (models.Sale, error) {
	if in.Date == nil || strings.TrimSpace(*in.Date) == "" || in.Amount == nil {
		return models.Sale{}, badRequest("Missing date or amount")
	}
	date, err := parseDate(*in.Date)
	if err != nil {
		return models.Sale{}, err
	}
	if err := validateAmount(*in.Amount); err != nil {
		return models.Sale{}, err
	}

	sale, err := s.repo.CreateSale(ctx, date, *in.Amount)
	if err != nil {
		s.logger.Error("failed to create sale", append(storeFault(err), zap.String("date", *in.Date), zap.Float64("amount", *in.Amount))...)
		return models.Sale{}, internal("Failed to create sale", err)
	}
	s.metrics.IncSalesCreated()
	s.logger.Info("sale created", zap.Int("sale_id", sale.ID), zap.String("date", sale.DateString()), zap.Float64("amount", sale.Amount))
	return sale, nil
}

// UpdateSale replaces only the fields present in in.
func (s Service) UpdateSale(ctx context.Context, id int, in SaleInput) (models.Sale, error) {
	var patch models.SalePatch
	if in.Date != nil {
		date, err := parseDate(*in.Date)
		if err != nil {
			return models.Sale{}, err
		}
		patch.Date = &date
	}
	if in.Amount != nil {
		if err := validateAmount(*in.Amount); err != nil {
			return models.Sale{}, err
		}
		amount := *in.Amount
		patch.Amount = &amount
	}

	sale, err := s.repo.UpdateSale(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return models.Sale{}, notFound("Sale not found")
		}
		s.logger.Error("failed to update sale", append(storeFault(err), zap.Int("sale_id", id))...)
		return models.Sale{}, internal("Failed to update sale", err)
	}
	s.logger.Info("sale updated", zap.Int("sale_id", sale.ID), zap.String("date", sale.DateString()), zap.Float64("amount", sale.Amount))
	return sale, nil
}

func (s Service) DeleteSale(ctx context.Context, id int) error {
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return notFound("Sale not found")
		}
		s.logger.Error("failed to delete sale", append(storeFault(err), zap.Int("sale_id", id))...)
		return internal("Failed to delete sale", err)
	}
	s.logger.Info("sale deleted", zap.Int("sale_id", id))
	return nil
}

// Predict fits a line through the stored amounts and extrapolates one step.
func (s Service) Predict(ctx context.Context) (Prediction, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		s.logger.Error("failed to list sales for prediction", storeFault(err)...)
		return Prediction{}, internal("Failed to retrieve sales", err)
	}
	if len(sales) < forecast.MinPoints {
		return Prediction{}, badRequest("Need at least 2 sales for prediction")
	}
	if s.sortByDate {
		slices.SortStableFunc(sales, func(a, b models.Sale) int {
			if c := a.Date.Compare(b.Date); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	amounts := make([]float64, len(sales))
	for i, sale := range sales {
		amounts[i] = sale.Amount
	}
	next, line, err := forecast.PredictNext(amounts)
	if err != nil {
		return Prediction{}, internal("Failed to fit trend", err)
	}
	chart, err := forecast.RenderChart(amounts, next)
	if err != nil {
		s.logger.Error("failed to render chart", zap.Error(err))
		return Prediction{}, internal("Failed to render chart", err)
	}

	s.metrics.IncPredictions()
	s.logger.Debug("prediction computed",
		zap.Int("points", len(amounts)),
		zap.Float64("intercept", line.Intercept),
		zap.Float64("slope", line.Slope),
		zap.Float64("next", next),
	)
	return Prediction{
		NextAmount: next,
		Line:       line,
		Points:     len(amounts),
		Chart:      chart,
	}, nil
}

// storeFault tells a database that could not be reached apart from a failing
// statement in the logs.
func storeFault(err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.Bool("store_unavailable", errors.Is(err, repository.ErrUnavailable)),
	}
}

func parseDate(raw string) (time.Time, error) {
	date, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, badRequest("Invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return badRequest("Invalid amount")
	}
	return nil
}
