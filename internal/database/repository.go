package database

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	Ping(ctx context.Context) error
	Close() error
	GetDocument(ctx context.Context, docId string) (Document, error)
	// CreateDocumentIfAbsent inserts the document unless one with the same id
	// exists and returns the stored row. created reports whether this call
	// performed the insert.
	CreateDocumentIfAbsent(ctx context.Context, params CreateDocumentParams) (doc Document, created bool, err error)
	UpsertContent(ctx context.Context, docId, content string) error
	UpsertTitle(ctx context.Context, docId, title string) error
	CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (ChatMessage, error)
	ListChatMessages(ctx context.Context, docId string) ([]ChatMessage, error)
	GetDocumentAccess(ctx context.Context, docId, userId string) (DocumentAccess, error)
}
