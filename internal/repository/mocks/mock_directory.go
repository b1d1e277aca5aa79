package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"caredocs/internal/model"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Facility(ctx context.Context, id string) (*model.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Facility), args.Error(1)
}

func (m *MockDirectory) Resident(ctx context.Context, id string) (*model.Resident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resident), args.Error(1)
}
