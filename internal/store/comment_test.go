package store

import (
	"context"
	"testing"

	"inkpress/internal/models"
)

func TestCommentStoreCRUD(t *testing.T) {
	db := testDB(t)
	posts := NewPostStore(db)
	s := NewCommentStore(db)
	ctx := context.Background()
	a, profile := testAccount(t, db, "comment")

	p := newTestPost(t, posts, profile.ID, "Commented", true)
	other := newTestPost(t, posts, profile.ID, "Other", true)

	for _, body := range []string{"apple pie", "zebra crossing"} {
		c := &models.Comment{PostID: p.ID, AccountID: a.ID, Body: body}
		if err := s.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	s.Create(ctx, &models.Comment{PostID: other.ID, AccountID: a.ID, Body: "elsewhere"})

	list, err := s.List(ctx, models.CommentFilter{PostID: &p.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("comments on post = %d, want 2", len(list))
	}
	if list[0].Body != "zebra crossing" {
		t.Errorf("comments should be ordered by text descending, first = %q", list[0].Body)
	}

	c := list[1]
	c.Body = "apple crumble"
	if err := s.Update(ctx, &c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.FindByID(ctx, c.ID)
	if err != nil || got == nil || got.Body != "apple crumble" {
		t.Fatalf("FindByID after update = %v, %v", got, err)
	}

	if err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.FindByID(ctx, c.ID)
	if err != nil || got != nil {
		t.Errorf("FindByID after delete = %v, %v", got, err)
	}
}
