package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/npezzotti/go-codecollab/internal/database"
	"github.com/npezzotti/go-codecollab/internal/types"
)

const lookupTimeout = 5 * time.Second

// Checker decides whether a principal may change a document's content and
// title. Owners always may; other users need an "edit" access entry. Documents
// without an owner are open to every authenticated user.
type Checker struct {
	repo               database.Repository
	anonymousMayMutate bool
}

func NewChecker(repo database.Repository, anonymousMayMutate bool) *Checker {
	return &Checker{
		repo:               repo,
		anonymousMayMutate: anonymousMayMutate,
	}
}

func (c *Checker) Permission(ctx context.Context, p types.Principal, docId string) (types.Permission, error) {
	if !p.Authenticated() {
		if c.anonymousMayMutate {
			return types.PermissionEdit, nil
		}
		return types.PermissionRead, nil
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	access, err := c.repo.GetDocumentAccess(ctx, docId, p.UserId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// the document is created ownerless on first join
			return types.PermissionEdit, nil
		}
		return types.PermissionNone, fmt.Errorf("get document access: %w", err)
	}

	switch {
	case access.OwnerId == "" || access.OwnerId == p.UserId:
		return types.PermissionEdit, nil
	case access.Permission == string(types.PermissionEdit):
		return types.PermissionEdit, nil
	case access.Permission == string(types.PermissionRead):
		return types.PermissionRead, nil
	default:
		return types.PermissionNone, nil
	}
}

func (c *Checker) MayMutate(ctx context.Context, p types.Principal, docId string) (bool, error) {
	perm, err := c.Permission(ctx, p, docId)
	if err != nil {
		return false, err
	}
	return perm == types.PermissionEdit, nil
}
