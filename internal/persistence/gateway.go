package persistence

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/npezzotti/go-codecollab/internal/database"
	"github.com/npezzotti/go-codecollab/internal/stats"
	"github.com/npezzotti/go-codecollab/internal/types"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 5 * time.Second

// Gateway is the write-through interface the hub uses for durable
// document and chat state.
type Gateway interface {
	GetOrCreateDocument(ctx context.Context, docId string) (types.Document, error)
	OverwriteContent(ctx context.Context, docId, content string) error
	UpdateTitle(ctx context.Context, docId, title string) error
	AppendChat(ctx context.Context, docId, author, text string) (types.ChatRecord, error)
	ListChat(ctx context.Context, docId string) ([]types.ChatRecord, error)
}

type StoreGateway struct {
	repo    database.Repository
	log     *log.Logger
	stats   stats.StatsProvider
	timeout time.Duration
	// creating collapses concurrent first loads of the same document
	creating singleflight.Group
}

func NewStoreGateway(repo database.Repository, logger *log.Logger, su stats.StatsProvider, timeout time.Duration) *StoreGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	su.RegisterMetric(stats.NumStorageErrors)

	return &StoreGateway{
		repo:    repo,
		log:     logger,
		stats:   su,
		timeout: timeout,
	}
}

func (g *StoreGateway) failed(op, docId string, err error) error {
	g.stats.Incr(stats.NumStorageErrors)
	g.log.Printf("%s %q: %v", op, docId, err)
	return fmt.Errorf("%s: %w", op, err)
}

func (g *StoreGateway) GetOrCreateDocument(ctx context.Context, docId string) (types.Document, error) {
	v, err, _ := g.creating.Do(docId, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		doc, created, err := g.repo.CreateDocumentIfAbsent(ctx, database.CreateDocumentParams{
			DocId:   docId,
			Title:   database.DefaultTitle,
			Content: database.DefaultContent,
		})
		if err != nil {
			return nil, err
		}

		if created {
			g.log.Printf("created document %q", docId)
		}

		return types.Document{
			DocId:   doc.DocId,
			Title:   doc.Title,
			Content: doc.Content,
		}, nil
	})
	if err != nil {
		return types.Document{}, g.failed("get or create document", docId, err)
	}

	return v.(types.Document), nil
}

func (g *StoreGateway) OverwriteContent(ctx context.Context, docId, content string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.repo.UpsertContent(ctx, docId, content); err != nil {
		return g.failed("overwrite content", docId, err)
	}
	return nil
}

func (g *StoreGateway) UpdateTitle(ctx context.Context, docId, title string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.repo.UpsertTitle(ctx, docId, title); err != nil {
		return g.failed("update title", docId, err)
	}
	return nil
}

func (g *StoreGateway) AppendChat(ctx context.Context, docId, author, text string) (types.ChatRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.repo.CreateChatMessage(ctx, database.CreateChatMessageParams{
		DocId:  docId,
		Author: author,
		Text:   text,
	})
	if err != nil {
		return types.ChatRecord{}, g.failed("append chat", docId, err)
	}

	return toChatRecord(msg), nil
}

func (g *StoreGateway) ListChat(ctx context.Context, docId string) ([]types.ChatRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages, err := g.repo.ListChatMessages(ctx, docId)
	if err != nil {
		return nil, g.failed("list chat", docId, err)
	}

	records := make([]types.ChatRecord, len(messages))
	for i, msg := range messages {
		records[i] = toChatRecord(msg)
	}
	return records, nil
}

func toChatRecord(msg database.ChatMessage) types.ChatRecord {
	return types.ChatRecord{
		Id:        msg.Id,
		DocId:     msg.DocId,
		User:      msg.Author,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
}
