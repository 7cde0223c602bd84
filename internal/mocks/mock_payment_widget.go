package mocks

import (
	"context"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentWidget struct {
	mock.Mock
	domain.PaymentWidget
}

func (m *MockPaymentWidget) Mount(handle domain.PaymentIntentHandle) domain.ElementsConfig {
	args := m.Called(handle)
	return args.Get(0).(domain.ElementsConfig)
}

func (m *MockPaymentWidget) Confirm(ctx context.Context, paymentMethodID string) (domain.ConfirmationResult, error) {
	args := m.Called(ctx, paymentMethodID)
	return args.Get(0).(domain.ConfirmationResult), args.Error(1)
}

func (m *MockPaymentWidget) Unmount() {
	m.Called()
}
