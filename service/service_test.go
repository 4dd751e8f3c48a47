package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"salesapi/models"
	"salesapi/repository"
	"salesapi/service"

	"salesapi/service/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func ptr[T any](v T) *T {
	return &v
}

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestService_CreateSale(t *testing.T) {
	type fields struct {
		prepareRepository func(*mocks.MockRepository)
	}
	tests := []struct {
		name     string
		fields   fields
		input    service.SaleInput
		want     models.Sale
		wantKind error
	}{
		{
			name: "valid sale",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						CreateSale(gomock.Any(), jan1, 100.0).
						Return(models.Sale{ID: 1, Date: jan1, Amount: 100.0}, nil)
				},
			},
			input: service.SaleInput{Date: ptr("2024-01-01"), Amount: ptr(100.0)},
			want:  models.Sale{ID: 1, Date: jan1, Amount: 100.0},
		},
		{
			name: "zero amount is a present amount",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						CreateSale(gomock.Any(), jan1, 0.0).
						Return(models.Sale{ID: 2, Date: jan1}, nil)
				},
			},
			input: service.SaleInput{Date: ptr("2024-01-01"), Amount: ptr(0.0)},
			want:  models.Sale{ID: 2, Date: jan1},
		},
		{
			name:     "missing amount",
			fields:   fields{prepareRepository: func(*mocks.MockRepository) {}},
			input:    service.SaleInput{Date: ptr("2024-01-01")},
			wantKind: service.ErrBadRequest,
		},
		{
			name:     "missing date",
			fields:   fields{prepareRepository: func(*mocks.MockRepository) {}},
			input:    service.SaleInput{Amount: ptr(5.0)},
			wantKind: service.ErrBadRequest,
		},
		{
			name:     "blank date",
			fields:   fields{prepareRepository: func(*mocks.MockRepository) {}},
			input:    service.SaleInput{Date: ptr("  "), Amount: ptr(5.0)},
			wantKind: service.ErrBadRequest,
		},
		{
			name:     "malformed date",
			fields:   fields{prepareRepository: func(*mocks.MockRepository) {}},
			input:    service.SaleInput{Date: ptr("01/02/2024"), Amount: ptr(5.0)},
			wantKind: service.ErrBadRequest,
		},
		{
			name: "storage fault",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						CreateSale(gomock.Any(), jan1, 1.0).
						Return(models.Sale{}, errors.New("disk full"))
				},
			},
			input:    service.SaleInput{Date: ptr("2024-01-01"), Amount: ptr(1.0)},
			wantKind: service.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)

			svc := service.NewService(mockRepo, zaptest.NewLogger(t))
			got, err := svc.CreateSale(context.Background(), tt.input)
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestService_UpdateSale(t *testing.T) {
	type fields struct {
		prepareRepository func(*mocks.MockRepository)
	}
	feb1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		fields   fields
		id       int
		input       service.SaleInput
		want        models.Sale
		wantKind    error
		wantMessage string
	}{
		{
			name: "amount only",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						UpdateSale(gomock.Any(), 1, models.SalePatch{Amount: ptr(200.0)}).
						Return(models.Sale{ID: 1, Date: jan1, Amount: 200.0}, nil)
				},
			},
			id:    1,
			input: service.SaleInput{Amount: ptr(200.0)},
			want:  models.Sale{ID: 1, Date: jan1, Amount: 200.0},
		},
		{
			name: "date only",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						UpdateSale(gomock.Any(), 1, models.SalePatch{Date: &feb1}).
						Return(models.Sale{ID: 1, Date: feb1, Amount: 100.0}, nil)
				},
			},
			id:    1,
			input: service.SaleInput{Date: ptr("2024-02-01")},
			want:  models.Sale{ID: 1, Date: feb1, Amount: 100.0},
		},
		{
			name: "unknown id",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						UpdateSale(gomock.Any(), 404, gomock.Any()).
						Return(models.Sale{}, repository.ErrSaleNotFound)
				},
			},
			id:       404,
			input:    service.SaleInput{Amount: ptr(1.0)},
			wantKind: service.ErrNotFound,
		},
		{
			name:     "malformed date never reaches the store",
			fields:   fields{prepareRepository: func(*mocks.MockRepository) {}},
			id:       1,
			input:    service.SaleInput{Date: ptr("yesterday")},
			wantKind: service.ErrBadRequest,
		},
		{
			name: "storage fault",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						UpdateSale(gomock.Any(), 1, gomock.Any()).
						Return(models.Sale{}, errors.New("conn reset"))
				},
			},
			id:          1,
			input:       service.SaleInput{Amount: ptr(1.0)},
			wantKind:    service.ErrInternal,
			wantMessage: "Failed to update sale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)

			svc := service.NewService(mockRepo, zaptest.NewLogger(t))
			got, err := svc.UpdateSale(context.Background(), tt.id, tt.input)
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				if tt.wantMessage != "" {
					require.Equal(t, tt.wantMessage, service.PublicMessage(err, ""))
					require.NotContains(t, service.PublicMessage(err, ""), "conn reset")
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestService_DeleteSale(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	gomock.InOrder(
		mockRepo.EXPECT().DeleteSale(gomock.Any(), 3).Return(nil),
		mockRepo.EXPECT().DeleteSale(gomock.Any(), 3).Return(repository.ErrSaleNotFound),
	)

	svc := service.NewService(mockRepo, zaptest.NewLogger(t))
	require.NoError(t, svc.DeleteSale(context.Background(), 3))

	err := svc.DeleteSale(context.Background(), 3)
	require.ErrorIs(t, err, service.ErrNotFound)
	require.Equal(t, "Sale not found", service.PublicMessage(err, ""))
}

func TestService_DeleteSale_StorageFault(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{name: "failing statement", err: errors.New("conn reset")},
		{name: "database unreachable", err: fmt.Errorf("delete sale 3: %w: %w", repository.ErrUnavailable, errors.New("conn reset")), wantUnavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			mockRepo.EXPECT().DeleteSale(gomock.Any(), 3).Return(tt.err)

			core, logs := observer.New(zap.ErrorLevel)
			svc := service.NewService(mockRepo, zap.New(core))

			err := svc.DeleteSale(context.Background(), 3)
			require.ErrorIs(t, err, service.ErrInternal)
			require.NotErrorIs(t, err, service.ErrNotFound)
			require.Equal(t, "Failed to delete sale", service.PublicMessage(err, ""))
			require.NotContains(t, service.PublicMessage(err, ""), "conn reset")

			entries := logs.FilterMessage("failed to delete sale").All()
			require.Len(t, entries, 1)
			require.Equal(t, tt.wantUnavailable, entries[0].ContextMap()["store_unavailable"])
			require.Equal(t, int64(3), entries[0].ContextMap()["sale_id"])
		})
	}
}

func TestService_ListSales_StorageFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockRepo.EXPECT().
		ListSales(gomock.Any()).
		Return(nil, errors.New("pq: password authentication failed"))

	svc := service.NewService(mockRepo, zaptest.NewLogger(t))
	_, err := svc.ListSales(context.Background())
	require.ErrorIs(t, err, service.ErrInternal)
	require.Equal(t, "Failed to retrieve sales", service.PublicMessage(err, ""))
}

func TestService_Predict(t *testing.T) {
	type fields struct {
		prepareRepository func(*mocks.MockRepository)
	}
	sales := func(amounts ...float64) []models.Sale {
		out := make([]models.Sale, len(amounts))
		for i, a := range amounts {
			out[i] = models.Sale{ID: i + 1, Date: jan1.AddDate(0, 0, 7*i), Amount: a}
		}
		return out
	}
	tests := []struct {
		name       string
		fields     fields
		sortByDate bool
		wantNext   float64
		wantKind   error
	}{
		{
			name: "linear series",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().ListSales(gomock.Any()).Return(sales(10, 20, 30), nil)
				},
			},
			wantNext: 40,
		},
		{
			name: "one record",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().ListSales(gomock.Any()).Return(sales(10), nil)
				},
			},
			wantKind: service.ErrBadRequest,
		},
		{
			name: "no records",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().ListSales(gomock.Any()).Return([]models.Sale{}, nil)
				},
			},
			wantKind: service.ErrBadRequest,
		},
		{
			name: "retrieval order is the time axis by default",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					s := sales(10, 20, 30)
					s[0].Date, s[2].Date = s[2].Date, s[0].Date
					mr.EXPECT().ListSales(gomock.Any()).Return(s, nil)
				},
			},
			wantNext: 40,
		},
		{
			name: "date ordering sorts before fitting",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					s := sales(10, 20, 30)
					s[0].Date, s[2].Date = s[2].Date, s[0].Date
					mr.EXPECT().ListSales(gomock.Any()).Return(s, nil)
				},
			},
			sortByDate: true,
			wantNext:   0,
		},
		{
			name: "storage fault",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().ListSales(gomock.Any()).Return(nil, errors.New("timeout"))
				},
			},
			wantKind: service.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)

			svc := service.NewService(mockRepo, zaptest.NewLogger(t), service.WithDateOrdering(tt.sortByDate))
			got, err := svc.Predict(context.Background())
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				return
			}
			require.NoError(t, err)
			require.InDelta(t, tt.wantNext, got.NextAmount, 1e-9)
			require.NotEmpty(t, got.Chart)
		})
	}
}
