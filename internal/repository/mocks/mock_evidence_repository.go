package mocks

import (
	"context"

	"evidapi/internal/model"
	"evidapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockEvidenceRepository struct {
	mock.Mock
}

func (m *MockEvidenceRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	args := m.Called(ctx, year)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEvidenceRepository) Create(ctx context.Context, ev *model.Evidence, first *model.CustodyEvent) (*model.Evidence, error) {
	args := m.Called(ctx, ev, first)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}

func (m *MockEvidenceRepository) FindByID(ctx context.Context, id string) (*model.Evidence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}

func (m *MockEvidenceRepository) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.Evidence], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Evidence]), args.Error(1)
}

func (m *MockEvidenceRepository) Transfer(ctx context.Context, p repository.TransferParams) (*model.Evidence, *model.CustodyEvent, error) {
	args := m.Called(ctx, p)
	var ev *model.Evidence
	var event *model.CustodyEvent
	if args.Get(0) != nil {
		ev = args.Get(0).(*model.Evidence)
	}
	if args.Get(1) != nil {
		event = args.Get(1).(*model.CustodyEvent)
	}
	return ev, event, args.Error(2)
}

func (m *MockEvidenceRepository) RecordVerification(ctx context.Context, p repository.VerificationParams) (*model.Evidence, *model.CustodyEvent, error) {
	args := m.Called(ctx, p)
	var ev *model.Evidence
	var event *model.CustodyEvent
	if args.Get(0) != nil {
		ev = args.Get(0).(*model.Evidence)
	}
	if args.Get(1) != nil {
		event = args.Get(1).(*model.CustodyEvent)
	}
	return ev, event, args.Error(2)
}

func (m *MockEvidenceRepository) SetStatus(ctx context.Context, p repository.StatusParams) (*model.Evidence, *model.CustodyEvent, error) {
	args := m.Called(ctx, p)
	var ev *model.Evidence
	var event *model.CustodyEvent
	if args.Get(0) != nil {
		ev = args.Get(0).(*model.Evidence)
	}
	if args.Get(1) != nil {
		event = args.Get(1).(*model.CustodyEvent)
	}
	return ev, event, args.Error(2)
}

func (m *MockEvidenceRepository) SetEventAnchor(ctx context.Context, eventID, ref string) error {
	args := m.Called(ctx, eventID, ref)
	return args.Error(0)
}

func (m *MockEvidenceRepository) History(ctx context.Context, evidenceID string) ([]model.CustodyEvent, error) {
	args := m.Called(ctx, evidenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CustodyEvent), args.Error(1)
}
