// Package access implements ownership-based write permissions. Reads are
// open to everyone; writes are allowed only to the account that owns the
// target entity.
package access

import (
	"net/http"

	"inkpress/internal/apperr"
	"inkpress/internal/models"
)

// IsSafe reports whether method only reads state.
func IsSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Rule is an ownership predicate for one entity type.
type Rule[T any] struct {
	ownerOf func(T) int64
}

// Owned builds a Rule from a function returning the owning account id.
func Owned[T any](ownerOf func(T) int64) Rule[T] {
	return Rule[T]{ownerOf: ownerOf}
}

// Check authorizes a request with the given method against obj. Safe
// methods always pass. Writes need an actor (apperr.ErrUnauthenticated)
// who owns obj (apperr.ErrForbidden).
func (r Rule[T]) Check(method string, actor *models.Account, obj T) error {
	if IsSafe(method) {
		return nil
	}
	return r.CanWrite(actor, obj)
}

// CanWrite reports whether actor may modify obj.
func (r Rule[T]) CanWrite(actor *models.Account, obj T) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if r.ownerOf(obj) != actor.ID {
		return apperr.ErrForbidden
	}
	return nil
}

// Rules for the blog entities.
var (
	PostOwner    = Owned(func(p *models.Post) int64 { return p.AuthorAccountID })
	TermOwner    = Owned(func(t *models.Term) int64 { return t.OwnerID })
	CommentOwner = Owned(func(c *models.Comment) int64 { return c.AccountID })
)
