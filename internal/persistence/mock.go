package persistence

import (
	"context"

	"github.com/npezzotti/go-codecollab/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetOrCreateDocument(ctx context.Context, docId string) (types.Document, error) {
	args := m.Called(ctx, docId)
	return args.Get(0).(types.Document), args.Error(1)
}
func (m *MockGateway) OverwriteContent(ctx context.Context, docId, content string) error {
	args := m.Called(ctx, docId, content)
	return args.Error(0)
}
func (m *MockGateway) UpdateTitle(ctx context.Context, docId, title string) error {
	args := m.Called(ctx, docId, title)
	return args.Error(0)
}
func (m *MockGateway) AppendChat(ctx context.Context, docId, author, text string) (types.ChatRecord, error) {
	args := m.Called(ctx, docId, author, text)
	return args.Get(0).(types.ChatRecord), args.Error(1)
}
func (m *MockGateway) ListChat(ctx context.Context, docId string) ([]types.ChatRecord, error) {
	args := m.Called(ctx, docId)
	if records, ok := args.Get(0).([]types.ChatRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}
