package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	getDocumentQuery = "SELECT doc_id, title, content, owner_id, created_at, updated_at FROM documents WHERE doc_id = $1"

	createDocumentQuery = "INSERT INTO documents (doc_id, title, content, owner_id, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $5) ON CONFLICT (doc_id) DO NOTHING"

	upsertContentQuery = "INSERT INTO documents (doc_id, title, content, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $4) " +
		"ON CONFLICT (doc_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at"

	upsertTitleQuery = "INSERT INTO documents (doc_id, title, content, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $4) " +
		"ON CONFLICT (doc_id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at"

	createChatMessageQuery = "INSERT INTO chat_messages (doc_id, author, text, created_at) " +
		"VALUES ($1, $2, $3, $4) RETURNING id"

	listChatMessagesQuery = "SELECT id, doc_id, author, text, created_at FROM chat_messages " +
		"WHERE doc_id = $1 ORDER BY id ASC"

	getDocumentAccessQuery = "SELECT d.doc_id, d.owner_id, a.permission FROM documents d " +
		"LEFT JOIN document_access a ON a.doc_id = d.doc_id AND a.user_id = $1 " +
		"WHERE d.doc_id = $2"
)

func now() time.Time {
	return time.Now().UTC().Round(time.Microsecond)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (db *SQLRepository) GetDocument(ctx context.Context, docId string) (Document, error) {
	row := db.conn.QueryRowContext(ctx, getDocumentQuery, docId)

	var (
		doc     Document
		ownerId sql.NullString
	)
	err := row.Scan(
		&doc.DocId,
		&doc.Title,
		&doc.Content,
		&ownerId,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}

	doc.OwnerId = ownerId.String
	return doc, nil
}

func (db *SQLRepository) CreateDocumentIfAbsent(ctx context.Context, params CreateDocumentParams) (Document, bool, error) {
	res, err := db.conn.ExecContext(
		ctx,
		createDocumentQuery,
		params.DocId,
		params.Title,
		params.Content,
		nullString(params.OwnerId),
		now(),
	)
	if err != nil {
		return Document{}, false, fmt.Errorf("insert document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Document{}, false, fmt.Errorf("rows affected: %w", err)
	}

	doc, err := db.GetDocument(ctx, params.DocId)
	if err != nil {
		return Document{}, false, fmt.Errorf("get document: %w", err)
	}

	return doc, n == 1, nil
}

func (db *SQLRepository) UpsertContent(ctx context.Context, docId, content string) error {
	_, err := db.conn.ExecContext(ctx, upsertContentQuery, docId, DefaultTitle, content, now())
	return err
}

func (db *SQLRepository) UpsertTitle(ctx context.Context, docId, title string) error {
	_, err := db.conn.ExecContext(ctx, upsertTitleQuery, docId, title, DefaultContent, now())
	return err
}

func (db *SQLRepository) CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (ChatMessage, error) {
	msg := ChatMessage{
		DocId:     params.DocId,
		Author:    params.Author,
		Text:      params.Text,
		CreatedAt: now(),
	}

	err := db.conn.QueryRowContext(
		ctx,
		createChatMessageQuery,
		msg.DocId,
		msg.Author,
		msg.Text,
		msg.CreatedAt,
	).Scan(&msg.Id)
	if err != nil {
		return ChatMessage{}, err
	}

	return msg, nil
}

func (db *SQLRepository) ListChatMessages(ctx context.Context, docId string) ([]ChatMessage, error) {
	rows, err := db.conn.QueryContext(ctx, listChatMessagesQuery, docId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.Id, &msg.DocId, &msg.Author, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (db *SQLRepository) GetDocumentAccess(ctx context.Context, docId, userId string) (DocumentAccess, error) {
	row := db.conn.QueryRowContext(ctx, getDocumentAccessQuery, userId, docId)

	var (
		access     DocumentAccess
		ownerId    sql.NullString
		permission sql.NullString
	)
	if err := row.Scan(&access.DocId, &ownerId, &permission); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DocumentAccess{}, ErrNotFound
		}
		return DocumentAccess{}, err
	}

	access.OwnerId = ownerId.String
	access.Permission = permission.String
	return access, nil
}
