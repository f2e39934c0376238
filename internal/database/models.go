package database

import "time"

const (
	DefaultTitle   = "Untitled Document"
	DefaultContent = "// Start coding here..."
)

type Document struct {
	DocId     string
	Title     string
	Content   string
	OwnerId   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatMessage struct {
	Id        int64
	DocId     string
	Author    string
	Text      string
	CreatedAt time.Time
}

// DocumentAccess describes what a single user may do with a document.
// Permission is empty when the user has no access entry.
type DocumentAccess struct {
	DocId      string
	OwnerId    string
	Permission string
}

type CreateDocumentParams struct {
	DocId   string
	Title   string
	Content string
	OwnerId string
}

type CreateChatMessageParams struct {
	DocId  string
	Author string
	Text   string
}
