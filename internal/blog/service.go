// Package blog implements the post, category, tag and comment operations
// behind the JSON API and HTML views. It resolves nested category and tag
// names, enforces ownership and keeps every write inside one transaction.
package blog

import (
	"context"
	"fmt"
	"log/slog"

	"inkpress/internal/access"
	"inkpress/internal/apperr"
	"inkpress/internal/imaging"
	"inkpress/internal/models"
	"inkpress/internal/storage"
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostRepository persists posts and their associations.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
	SetImage(ctx context.Context, id int64, image string) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error)
	SetCategories(ctx context.Context, postID int64, ids []int64) error
	SetTags(ctx context.Context, postID int64, ids []int64) error
}

// TermRepository persists categories or tags.
type TermRepository interface {
	List(ctx context.Context) ([]models.Term, error)
	FindByID(ctx context.Context, id int64) (*models.Term, error)
	Create(ctx context.Context, ownerID int64, name string) (*models.Term, error)
	Update(ctx context.Context, id int64, name string) (*models.Term, error)
	Delete(ctx context.Context, id int64) error
	GetOrCreate(ctx context.Context, ownerID int64, name string) (*models.Term, bool, error)
}

// CommentRepository persists comments.
type CommentRepository interface {
	List(ctx context.Context, f models.CommentFilter) ([]models.Comment, error)
	FindByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) error
	Update(ctx context.Context, c *models.Comment) error
	Delete(ctx context.Context, id int64) error
}

// ProfileFinder looks up the profile that authors an account's posts.
type ProfileFinder interface {
	FindByAccount(ctx context.Context, accountID int64) (*models.Profile, error)
}

// Invalidator drops cached renderings after content changes.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Deps are the collaborators of a Service. Media and Cache are optional.
type Deps struct {
	Tx         Transactor
	Posts      PostRepository
	Categories TermRepository
	Tags       TermRepository
	Comments   CommentRepository
	Profiles   ProfileFinder
	Media      storage.Store
	Cache      Invalidator
}

// Service implements the blog operations.
type Service struct {
	tx         Transactor
	posts      PostRepository
	categories *TermService
	tags       *TermService
	comments   CommentRepository
	profiles   ProfileFinder
	media      storage.Store
	cache      Invalidator
}

// NewService wires a Service from its dependencies.
func NewService(d Deps) *Service {
	s := &Service{
		tx:       d.Tx,
		posts:    d.Posts,
		comments: d.Comments,
		profiles: d.Profiles,
		media:    d.Media,
		cache:    d.Cache,
	}
	s.categories = &TermService{repo: d.Categories, changed: s.invalidate}
	s.tags = &TermService{repo: d.Tags, changed: s.invalidate}
	return s
}

// Categories returns the category operations.
func (s *Service) Categories() *TermService { return s.categories }

// Tags returns the tag operations.
func (s *Service) Tags() *TermService { return s.tags }

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

// --- Posts ---

// ListPosts returns one page of published posts and the total match count.
func (s *Service) ListPosts(ctx context.Context, f models.PostFilter) ([]models.Post, int, error) {
	if f.Ordering == "" {
		f.Ordering = models.OrderPublishedDesc
	}
	return s.posts.List(ctx, f)
}

// GetPost returns a post. Drafts are visible to their owner only; anyone
// else gets apperr.ErrNotFound.
func (s *Service) GetPost(ctx context.Context, actor *models.Account, id int64) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	if !p.IsPublished() && (actor == nil || actor.ID != p.AuthorAccountID) {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// Byline returns the display name of the post's author.
func (s *Service) Byline(ctx context.Context, p *models.Post) (string, error) {
	profile, err := s.profiles.FindByAccount(ctx, p.AuthorAccountID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", nil
	}
	return profile.FullName(), nil
}

// writablePost loads a post for modification by actor.
func (s *Service) writablePost(ctx context.Context, actor *models.Account, id int64) (*models.Post, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.GetPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.PostOwner.CanWrite(actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePost stores a new post authored by actor's profile. Nested
// categories and tags are resolved by name in input order in the same
// transaction as the post.
func (s *Service) CreatePost(ctx context.Context, actor *models.Account, in PostInput) (*models.Post, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if in.Title == nil || in.Content == nil || in.PublishedDate == nil {
		return nil, fmt.Errorf("create post: incomplete input")
	}

	profile, err := s.profiles.FindByAccount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("create post: account %d has no profile", actor.ID)
	}

	p := &models.Post{
		AuthorID:      profile.ID,
		Title:         *in.Title,
		Content:       *in.Content,
		PublishedDate: *in.PublishedDate,
	}
	if in.Status != nil {
		p.Status = *in.Status
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.posts.Create(ctx, p); err != nil {
			return err
		}
		return s.attachTerms(ctx, actor, p.ID, in)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post created", "id", p.ID, "account_id", actor.ID)
	s.invalidate(ctx)
	return s.reload(ctx, p.ID)
}

// UpdatePost applies in to an existing post owned by actor. When partial
// is false the scalar fields must all be present. Association fields that
// are present replace the current set; absent ones are left alone.
func (s *Service) UpdatePost(ctx context.Context, actor *models.Account, id int64, in PostInput, partial bool) (*models.Post, error) {
	p, err := s.writablePost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !partial && (in.Title == nil || in.Content == nil || in.PublishedDate == nil) {
		return nil, fmt.Errorf("update post: incomplete input")
	}

	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.PublishedDate != nil {
		p.PublishedDate = *in.PublishedDate
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.posts.Update(ctx, p); err != nil {
			return err
		}
		return s.attachTerms(ctx, actor, p.ID, in)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post updated", "id", p.ID, "account_id", actor.ID)
	s.invalidate(ctx)
	return s.reload(ctx, p.ID)
}

// DeletePost removes a post owned by actor together with its image.
func (s *Service) DeletePost(ctx context.Context, actor *models.Account, id int64) error {
	p, err := s.writablePost(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, p.ID); err != nil {
		return err
	}
	if p.Image != nil {
		s.removeMedia(ctx, *p.Image)
	}

	slog.Info("post deleted", "id", p.ID, "account_id", actor.ID)
	s.invalidate(ctx)
	return nil
}

// UploadPostImage validates data as an image, stores it and points the
// post at it. A previously stored image is removed.
func (s *Service) UploadPostImage(ctx context.Context, actor *models.Account, id int64, data []byte) (*models.Post, error) {
	p, err := s.writablePost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	url, err := imaging.Save(ctx, s.media, "posts", data)
	if err != nil {
		return nil, err
	}
	if err := s.posts.SetImage(ctx, p.ID, url); err != nil {
		s.removeMedia(ctx, url)
		return nil, err
	}
	if p.Image != nil && *p.Image != url {
		s.removeMedia(ctx, *p.Image)
	}

	s.invalidate(ctx)
	return s.reload(ctx, p.ID)
}

func (s *Service) removeMedia(ctx context.Context, url string) {
	if s.media == nil {
		return
	}
	if err := s.media.Remove(ctx, url); err != nil {
		slog.Warn("failed to remove media", "url", url, "error", err)
	}
}

// attachTerms resolves and replaces the categories and tags named in in.
func (s *Service) attachTerms(ctx context.Context, actor *models.Account, postID int64, in PostInput) error {
	if in.Categories != nil {
		ids, err := s.categories.resolve(ctx, actor.ID, *in.Categories)
		if err != nil {
			return err
		}
		if err := s.posts.SetCategories(ctx, postID, ids); err != nil {
			return err
		}
	}
	if in.Tags != nil {
		ids, err := s.tags.resolve(ctx, actor.ID, *in.Tags)
		if err != nil {
			return err
		}
		if err := s.posts.SetTags(ctx, postID, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) reload(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// --- Comments ---

// ListComments returns comments, optionally limited to one post.
func (s *Service) ListComments(ctx context.Context, f models.CommentFilter) ([]models.Comment, error) {
	return s.comments.List(ctx, f)
}

// GetComment returns a single comment.
func (s *Service) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

// CreateComment stores a comment by actor on an existing post.
func (s *Service) CreateComment(ctx context.Context, actor *models.Account, in CommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if in.PostID == nil || in.Body == nil {
		return nil, fmt.Errorf("create comment: incomplete input")
	}
	if err := s.requirePost(ctx, *in.PostID); err != nil {
		return nil, err
	}

	c := &models.Comment{PostID: *in.PostID, AccountID: actor.ID, Body: *in.Body}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// UpdateComment edits a comment owned by actor.
func (s *Service) UpdateComment(ctx context.Context, actor *models.Account, id int64, in CommentInput, partial bool) (*models.Comment, error) {
	c, err := s.writableComment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !partial && (in.PostID == nil || in.Body == nil) {
		return nil, fmt.Errorf("update comment: incomplete input")
	}
	if in.PostID != nil {
		if err := s.requirePost(ctx, *in.PostID); err != nil {
			return nil, err
		}
		c.PostID = *in.PostID
	}
	if in.Body != nil {
		c.Body = *in.Body
	}
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// DeleteComment removes a comment owned by actor.
func (s *Service) DeleteComment(ctx context.Context, actor *models.Account, id int64) error {
	c, err := s.writableComment(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) writableComment(ctx context.Context, actor *models.Account, id int64) (*models.Comment, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	c, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CommentOwner.CanWrite(actor, c); err != nil {
		return nil, err
	}
	return c, nil
}

// requirePost reports a post_obj field error when the post is missing.
func (s *Service) requirePost(ctx context.Context, id int64) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.Field("post_obj", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}
	return nil
}
