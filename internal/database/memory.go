package database

import (
	"context"
	"sync"
)

// MemoryRepository keeps everything in process memory. It backs the
// "memory" driver and the hub tests.
type MemoryRepository struct {
	mu        sync.Mutex
	documents map[string]Document
	messages  map[string][]ChatMessage
	access    map[string]map[string]string
	nextMsgId int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		documents: make(map[string]Document),
		messages:  make(map[string][]ChatMessage),
		access:    make(map[string]map[string]string),
	}
}

func (m *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) GetDocument(ctx context.Context, docId string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[docId]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryRepository) CreateDocumentIfAbsent(ctx context.Context, params CreateDocumentParams) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.documents[params.DocId]; ok {
		return doc, false, nil
	}

	ts := now()
	doc := Document{
		DocId:     params.DocId,
		Title:     params.Title,
		Content:   params.Content,
		OwnerId:   params.OwnerId,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.documents[doc.DocId] = doc
	return doc, true, nil
}

func (m *MemoryRepository) upsert(docId string, update func(*Document)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := now()
	doc, ok := m.documents[docId]
	if !ok {
		doc = Document{
			DocId:     docId,
			Title:     DefaultTitle,
			Content:   DefaultContent,
			CreatedAt: ts,
		}
	}
	update(&doc)
	doc.UpdatedAt = ts
	m.documents[docId] = doc
}

func (m *MemoryRepository) UpsertContent(ctx context.Context, docId, content string) error {
	m.upsert(docId, func(d *Document) { d.Content = content })
	return nil
}

func (m *MemoryRepository) UpsertTitle(ctx context.Context, docId, title string) error {
	m.upsert(docId, func(d *Document) { d.Title = title })
	return nil
}

func (m *MemoryRepository) CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsgId++
	msg := ChatMessage{
		Id:        m.nextMsgId,
		DocId:     params.DocId,
		Author:    params.Author,
		Text:      params.Text,
		CreatedAt: now(),
	}
	m.messages[params.DocId] = append(m.messages[params.DocId], msg)
	return msg, nil
}

func (m *MemoryRepository) ListChatMessages(ctx context.Context, docId string) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]ChatMessage, len(m.messages[docId]))
	copy(messages, m.messages[docId])
	return messages, nil
}

func (m *MemoryRepository) GetDocumentAccess(ctx context.Context, docId, userId string) (DocumentAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[docId]
	if !ok {
		return DocumentAccess{}, ErrNotFound
	}

	return DocumentAccess{
		DocId:      docId,
		OwnerId:    doc.OwnerId,
		Permission: m.access[docId][userId],
	}, nil
}

// GrantAccess records a read or edit permission for a user.
func (m *MemoryRepository) GrantAccess(docId, userId, permission string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.access[docId] == nil {
		m.access[docId] = make(map[string]string)
	}
	m.access[docId][userId] = permission
}
