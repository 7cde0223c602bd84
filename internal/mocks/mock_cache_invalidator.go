package mocks

import (
	"context"

	"github.com/metinatakli/design-storefront/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCacheInvalidator struct {
	mock.Mock
	domain.CacheInvalidator
}

func (m *MockCacheInvalidator) MarkStale(ctx context.Context, collections ...domain.Collection) error {
	args := m.Called(ctx, collections)
	return args.Error(0)
}
