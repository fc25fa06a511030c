package mocks

import (
	"context"
	"io"

	"evidapi/internal/auth"
	"evidapi/internal/model"
	"evidapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockEvidenceService struct {
	mock.Mock
}

func (m *MockEvidenceService) Register(ctx context.Context, r io.Reader, filename, contentType string, size int64, meta service.RegisterRequest, actor *auth.Actor) (*model.Evidence, error) {
	args := m.Called(ctx, r, filename, contentType, size, meta, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}

func (m *MockEvidenceService) Get(ctx context.Context, id string) (*model.Evidence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}

func (m *MockEvidenceService) List(ctx context.Context, q service.ListQuery) (*service.EvidenceListResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EvidenceListResult), args.Error(1)
}

func (m *MockEvidenceService) Transfer(ctx context.Context, id string, req service.TransferRequest, actor *auth.Actor) (*service.TransferResult, error) {
	args := m.Called(ctx, id, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransferResult), args.Error(1)
}

func (m *MockEvidenceService) Verify(ctx context.Context, id string, actor *auth.Actor) (*service.VerificationResult, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationResult), args.Error(1)
}

func (m *MockEvidenceService) History(ctx context.Context, id string) (*service.CustodyHistory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CustodyHistory), args.Error(1)
}

func (m *MockEvidenceService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockEvidenceService) BeginAnalysis(ctx context.Context, id string, actor *auth.Actor) (*model.Evidence, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}

func (m *MockEvidenceService) Archive(ctx context.Context, id, reason string, actor *auth.Actor) (*model.Evidence, error) {
	args := m.Called(ctx, id, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evidence), args.Error(1)
}
