package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) GetDocument(ctx context.Context, docId string) (Document, error) {
	args := m.Called(ctx, docId)
	return args.Get(0).(Document), args.Error(1)
}
func (m *MockRepository) CreateDocumentIfAbsent(ctx context.Context, params CreateDocumentParams) (Document, bool, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Document), args.Bool(1), args.Error(2)
}
func (m *MockRepository) UpsertContent(ctx context.Context, docId, content string) error {
	args := m.Called(ctx, docId, content)
	return args.Error(0)
}
func (m *MockRepository) UpsertTitle(ctx context.Context, docId, title string) error {
	args := m.Called(ctx, docId, title)
	return args.Error(0)
}
func (m *MockRepository) CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (ChatMessage, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(ChatMessage), args.Error(1)
}
func (m *MockRepository) ListChatMessages(ctx context.Context, docId string) ([]ChatMessage, error) {
	args := m.Called(ctx, docId)
	if messages, ok := args.Get(0).([]ChatMessage); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) GetDocumentAccess(ctx context.Context, docId, userId string) (DocumentAccess, error) {
	args := m.Called(ctx, docId, userId)
	return args.Get(0).(DocumentAccess), args.Error(1)
}
