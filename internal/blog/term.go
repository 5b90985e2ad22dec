package blog

import (
	"context"
	"log/slog"

	"inkpress/internal/access"
	"inkpress/internal/apperr"
	"inkpress/internal/models"
)

// TermService implements CRUD over one kind of term (categories or tags).
type TermService struct {
	repo    TermRepository
	changed func(ctx context.Context)
}

// List returns every term ordered by name descending.
func (t *TermService) List(ctx context.Context) ([]models.Term, error) {
	return t.repo.List(ctx)
}

// Get returns one term.
func (t *TermService) Get(ctx context.Context, id int64) (*models.Term, error) {
	term, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, apperr.ErrNotFound
	}
	return term, nil
}

// Create stores a term owned by actor.
func (t *TermService) Create(ctx context.Context, actor *models.Account, name string) (*models.Term, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	term, err := t.repo.Create(ctx, actor.ID, name)
	if err != nil {
		return nil, err
	}
	t.changed(ctx)
	return term, nil
}

// Update renames a term owned by actor.
func (t *TermService) Update(ctx context.Context, actor *models.Account, id int64, name string) (*models.Term, error) {
	if _, err := t.writable(ctx, actor, id); err != nil {
		return nil, err
	}
	term, err := t.repo.Update(ctx, id, name)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, apperr.ErrNotFound
	}
	t.changed(ctx)
	return term, nil
}

// Delete removes a term owned by actor. Posts lose the association.
func (t *TermService) Delete(ctx context.Context, actor *models.Account, id int64) error {
	if _, err := t.writable(ctx, actor, id); err != nil {
		return err
	}
	if err := t.repo.Delete(ctx, id); err != nil {
		return err
	}
	t.changed(ctx)
	return nil
}

func (t *TermService) writable(ctx context.Context, actor *models.Account, id int64) (*models.Term, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	term, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.TermOwner.CanWrite(actor, term); err != nil {
		return nil, err
	}
	return term, nil
}

// resolve maps names to term ids with get-or-create, in input order.
// Repeated names resolve to the same id, which is attached once.
func (t *TermService) resolve(ctx context.Context, ownerID int64, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	seen := make(map[int64]bool, len(names))
	for _, name := range names {
		term, created, err := t.repo.GetOrCreate(ctx, ownerID, name)
		if err != nil {
			return nil, err
		}
		if created {
			slog.Debug("term created", "id", term.ID, "name", name)
		}
		if seen[term.ID] {
			continue
		}
		seen[term.ID] = true
		ids = append(ids, term.ID)
	}
	return ids, nil
}
