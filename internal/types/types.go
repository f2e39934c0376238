package types

import (
	"time"
)

// Principal is the identity supplied by the authentication layer for a
// connection. An empty UserId means the connection is anonymous.
type Principal struct {
	UserId string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (p Principal) Authenticated() bool {
	return p.UserId != ""
}

// Identity is the server-held identity of a connection, assigned once.
type Identity struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type Document struct {
	DocId   string `json:"docId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ChatRecord struct {
	Id        int64     `json:"id"`
	DocId     string    `json:"docId"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Permission string

const (
	PermissionNone Permission = "none"
	PermissionRead Permission = "read"
	PermissionEdit Permission = "edit"
)
