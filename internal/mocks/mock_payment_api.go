package mocks

import (
	"context"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentAPI struct {
	mock.Mock
	domain.PaymentAPI
}

func (m *MockPaymentAPI) CreatePaymentIntent(
	ctx context.Context,
	req domain.CreateIntentRequest) (domain.PaymentIntentHandle, error) {

	args := m.Called(ctx, req)
	return args.Get(0).(domain.PaymentIntentHandle), args.Error(1)
}

func (m *MockPaymentAPI) GetPaymentStatus(ctx context.Context, paymentIntentID string) (domain.PaymentRecord, error) {
	args := m.Called(ctx, paymentIntentID)
	return args.Get(0).(domain.PaymentRecord), args.Error(1)
}
