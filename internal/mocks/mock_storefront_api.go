package mocks

import (
	"context"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockStorefrontAPI struct {
	mock.Mock
	domain.StorefrontAPI
}

func (m *MockStorefrontAPI) CreatePaymentIntent(
	ctx context.Context,
	req domain.CreateIntentRequest) (domain.PaymentIntentHandle, error) {

	args := m.Called(ctx, req)
	return args.Get(0).(domain.PaymentIntentHandle), args.Error(1)
}

func (m *MockStorefrontAPI) GetPaymentStatus(ctx context.Context, paymentIntentID string) (domain.PaymentRecord, error) {
	args := m.Called(ctx, paymentIntentID)
	return args.Get(0).(domain.PaymentRecord), args.Error(1)
}

func (m *MockStorefrontAPI) RefundPayment(ctx context.Context, req domain.RefundRequest) (domain.PaymentRecord, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.PaymentRecord), args.Error(1)
}

func (m *MockStorefrontAPI) ListDesigns(ctx context.Context, filter domain.DesignFilter) (domain.DesignPage, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(domain.DesignPage), args.Error(1)
}

func (m *MockStorefrontAPI) GetItem(
	ctx context.Context,
	productType domain.ProductType,
	id string) (domain.PurchasableItem, error) {

	args := m.Called(ctx, productType, id)
	return args.Get(0).(domain.PurchasableItem), args.Error(1)
}

func (m *MockStorefrontAPI) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Purchase), args.Error(1)
}

func (m *MockStorefrontAPI) ListDownloads(ctx context.Context) ([]domain.Download, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Download), args.Error(1)
}
