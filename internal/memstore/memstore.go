// Package memstore provides in-memory implementations of the repositories
// used by the account and blog services. They mirror the ordering and
// not-found conventions of the PostgreSQL stores and back the service and
// handler tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"inkpress/internal/apperr"
	"inkpress/internal/models"
	"inkpress/internal/store"
)

// link is one post-to-term attachment.
type link struct {
	postID, termID int64
}

// state is everything a DB holds. It is copied wholesale to roll back.
type state struct {
	seq        int64
	accounts   map[int64]models.Account
	profiles   map[int64]models.Profile
	tokens     map[string]models.AuthToken
	categories map[int64]models.Term
	tags       map[int64]models.Term
	posts      map[int64]models.Post
	postCats   []link
	postTags   []link
	comments   map[int64]models.Comment
}

func (s state) clone() state {
	c := s
	c.accounts = maps.Clone(s.accounts)
	c.profiles = maps.Clone(s.profiles)
	c.tokens = maps.Clone(s.tokens)
	c.categories = maps.Clone(s.categories)
	c.tags = maps.Clone(s.tags)
	c.posts = maps.Clone(s.posts)
	c.postCats = slices.Clone(s.postCats)
	c.postTags = slices.Clone(s.postTags)
	c.comments = maps.Clone(s.comments)
	return c
}

// DB is an in-memory database shared by the stores below.
type DB struct {
	mu  sync.Mutex
	st  state
	now func() time.Time

	// FailOn makes the named operation (e.g. "SetTags") return an error.
	FailOn map[string]error
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		st: state{
			accounts:   map[int64]models.Account{},
			profiles:   map[int64]models.Profile{},
			tokens:     map[string]models.AuthToken{},
			categories: map[int64]models.Term{},
			tags:       map[int64]models.Term{},
			posts:      map[int64]models.Post{},
			comments:   map[int64]models.Comment{},
		},
		now:    time.Now,
		FailOn: map[string]error{},
	}
}

func (db *DB) nextID() int64 {
	db.st.seq++
	return db.st.seq
}

func (db *DB) fail(op string) error {
	return db.FailOn[op]
}

// InTx runs fn and restores the previous state if it fails. Transactions
// are not isolated from concurrent callers.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.mu.Lock()
	snapshot := db.st.clone()
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.st = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

// --- Accounts ---

// Accounts implements the account repository.
type Accounts struct{ db *DB }

// Accounts returns the account repository.
func (db *DB) Accounts() *Accounts { return &Accounts{db: db} }

// Create mirrors store.AccountStore.Create, including its profile.
func (r *Accounts) Create(_ context.Context, email, password string, flags models.AccountFlags) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Field("email", store.MsgEmailRequired)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, a := range db.st.accounts {
		if a.Email == email {
			return nil, apperr.Field("email", store.MsgEmailTaken)
		}
	}
	now := db.now()
	a := models.Account{
		ID:           db.nextID(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      flags.IsStaff,
		IsSuperuser:  flags.IsSuperuser,
		IsVerified:   flags.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	db.st.accounts[a.ID] = a
	p := models.Profile{ID: db.nextID(), AccountID: a.ID, CreatedAt: now, UpdatedAt: now}
	db.st.profiles[p.ID] = p
	return &a, nil
}

// CreateSuperuser creates a verified staff superuser.
func (r *Accounts) CreateSuperuser(ctx context.Context, email, password string) (*models.Account, error) {
	return r.Create(ctx, email, password, models.AccountFlags{IsStaff: true, IsSuperuser: true, IsVerified: true})
}

// FindByEmail returns nil when no account matches.
func (r *Accounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.st.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, nil
}

// FindByID returns nil when no account matches.
func (r *Accounts) FindByID(_ context.Context, id int64) (*models.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.st.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *Accounts) update(id int64, fn func(a *models.Account)) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a, ok := r.db.st.accounts[id]; ok {
		fn(&a)
		a.UpdatedAt = r.db.now()
		r.db.st.accounts[id] = a
	}
}

// SetVerified marks the account as verified.
func (r *Accounts) SetVerified(_ context.Context, id int64) error {
	r.update(id, func(a *models.Account) { a.IsVerified = true })
	return nil
}

// SetActive toggles the active flag.
func (r *Accounts) SetActive(id int64, active bool) {
	r.update(id, func(a *models.Account) { a.IsActive = active })
}

// SetPassword replaces the password hash.
func (r *Accounts) SetPassword(_ context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	r.update(id, func(a *models.Account) { a.PasswordHash = string(hash) })
	return nil
}

// TouchLastLogin records the login time.
func (r *Accounts) TouchLastLogin(_ context.Context, id int64) error {
	now := r.db.now()
	r.update(id, func(a *models.Account) { a.LastLogin = &now })
	return nil
}

// CheckPassword compares password with the stored hash.
func (r *Accounts) CheckPassword(a *models.Account, password string) bool {
	return store.CheckPassword(a, password)
}

// --- Profiles ---

// Profiles implements the profile repository.
type Profiles struct{ db *DB }

// Profiles returns the profile repository.
func (db *DB) Profiles() *Profiles { return &Profiles{db: db} }

func (r *Profiles) withEmail(p models.Profile) *models.Profile {
	p.Email = r.db.st.accounts[p.AccountID].Email
	return &p
}

// FindByAccount returns nil when the account has no profile.
func (r *Profiles) FindByAccount(_ context.Context, accountID int64) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.st.profiles {
		if p.AccountID == accountID {
			return r.withEmail(p), nil
		}
	}
	return nil, nil
}

// FindByID returns nil when no profile matches.
func (r *Profiles) FindByID(_ context.Context, id int64) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.st.profiles[id]
	if !ok {
		return nil, nil
	}
	return r.withEmail(p), nil
}

// Update saves the editable profile attributes.
func (r *Profiles) Update(_ context.Context, p *models.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.st.profiles[p.ID]
	if !ok {
		return nil
	}
	cur.FirstName, cur.LastName, cur.Bio, cur.Sex = p.FirstName, p.LastName, p.Bio, p.Sex
	cur.UpdatedAt = r.db.now()
	p.UpdatedAt = cur.UpdatedAt
	r.db.st.profiles[p.ID] = cur
	return nil
}

// SetImage stores the profile picture URL.
func (r *Profiles) SetImage(_ context.Context, id int64, image string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.st.profiles[id]; ok {
		p.Image = &image
		r.db.st.profiles[id] = p
	}
	return nil
}

// --- Tokens ---

// Tokens implements the opaque login token repository.
type Tokens struct{ db *DB }

// Tokens returns the token repository.
func (db *DB) Tokens() *Tokens { return &Tokens{db: db} }

// GetOrCreate returns the account's token, creating one if needed.
func (r *Tokens) GetOrCreate(_ context.Context, accountID int64) (*models.AuthToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.st.tokens {
		if t.AccountID == accountID {
			return &t, nil
		}
	}
	key, err := store.GenerateKey()
	if err != nil {
		return nil, err
	}
	t := models.AuthToken{Key: key, AccountID: accountID, CreatedAt: r.db.now()}
	r.db.st.tokens[key] = t
	return &t, nil
}

// FindByKey returns nil for unknown keys.
func (r *Tokens) FindByKey(_ context.Context, key string) (*models.AuthToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.st.tokens[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// DeleteForAccount removes the account's token.
func (r *Tokens) DeleteForAccount(_ context.Context, accountID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, t := range r.db.st.tokens {
		if t.AccountID == accountID {
			delete(r.db.st.tokens, k)
		}
	}
	return nil
}

// --- Terms ---

// Terms implements the category or tag repository.
type Terms struct {
	db   *DB
	pick func(*state) map[int64]models.Term
}

// Categories returns the category repository.
func (db *DB) Categories() *Terms {
	return &Terms{db: db, pick: func(s *state) map[int64]models.Term { return s.categories }}
}

// Tags returns the tag repository.
func (db *DB) Tags() *Terms {
	return &Terms{db: db, pick: func(s *state) map[int64]models.Term { return s.tags }}
}

// List orders by name descending, then id descending.
func (r *Terms) List(_ context.Context) ([]models.Term, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	items := slices.Collect(maps.Values(r.pick(&r.db.st)))
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name > items[j].Name
		}
		return items[i].ID > items[j].ID
	})
	if items == nil {
		items = []models.Term{}
	}
	return items, nil
}

// FindByID returns nil when no term matches.
func (r *Terms) FindByID(_ context.Context, id int64) (*models.Term, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.pick(&r.db.st)[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// Create stores a new term.
func (r *Terms) Create(_ context.Context, ownerID int64, name string) (*models.Term, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.create(ownerID, name), nil
}

func (r *Terms) create(ownerID int64, name string) *models.Term {
	now := r.db.now()
	t := models.Term{ID: r.db.nextID(), OwnerID: ownerID, Name: name, CreatedAt: now, UpdatedAt: now}
	r.pick(&r.db.st)[t.ID] = t
	return &t
}

// Update renames a term. Returns nil when it does not exist.
func (r *Terms) Update(_ context.Context, id int64, name string) (*models.Term, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	terms := r.pick(&r.db.st)
	t, ok := terms[id]
	if !ok {
		return nil, nil
	}
	t.Name = name
	t.UpdatedAt = r.db.now()
	terms[id] = t
	return &t, nil
}

// Delete removes a term and its post attachments.
func (r *Terms) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st := &r.db.st
	delete(r.pick(st), id)
	st.postCats = slices.DeleteFunc(st.postCats, func(l link) bool {
		_, ok := st.categories[l.termID]
		return !ok
	})
	st.postTags = slices.DeleteFunc(st.postTags, func(l link) bool {
		_, ok := st.tags[l.termID]
		return !ok
	})
	return nil
}

// GetOrCreate returns the owner's oldest term with name, creating one
// when none exists.
func (r *Terms) GetOrCreate(_ context.Context, ownerID int64, name string) (*models.Term, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var found *models.Term
	for _, t := range r.pick(&r.db.st) {
		if t.OwnerID == ownerID && t.Name == name && (found == nil || t.ID < found.ID) {
			found = &t
		}
	}
	if found != nil {
		return found, false, nil
	}
	return r.create(ownerID, name), true, nil
}

// --- Posts ---

// Posts implements the post repository.
type Posts struct{ db *DB }

// Posts returns the post repository.
func (db *DB) Posts() *Posts { return &Posts{db: db} }

// Create inserts the scalar fields of p and fills in its id, timestamps
// and author account.
func (r *Posts) Create(_ context.Context, p *models.Post) error {
	if err := r.db.fail("CreatePost"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	p.ID = r.db.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	p.AuthorAccountID = r.db.st.profiles[p.AuthorID].AccountID
	stored := *p
	stored.Categories, stored.Tags = nil, nil
	r.db.st.posts[p.ID] = stored
	p.Categories, p.Tags = []models.Category{}, []models.Tag{}
	return nil
}

// Update saves the scalar fields of p.
func (r *Posts) Update(_ context.Context, p *models.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.st.posts[p.ID]
	if !ok {
		return nil
	}
	cur.Title, cur.Content, cur.Status, cur.PublishedDate = p.Title, p.Content, p.Status, p.PublishedDate
	cur.UpdatedAt = r.db.now()
	p.UpdatedAt = cur.UpdatedAt
	r.db.st.posts[p.ID] = cur
	return nil
}

// SetImage stores the post image URL.
func (r *Posts) SetImage(_ context.Context, id int64, image string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.st.posts[id]; ok {
		p.Image = &image
		r.db.st.posts[id] = p
	}
	return nil
}

// Delete removes a post with its comments and attachments.
func (r *Posts) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st := &r.db.st
	delete(st.posts, id)
	byPost := func(l link) bool { return l.postID == id }
	st.postCats = slices.DeleteFunc(st.postCats, byPost)
	st.postTags = slices.DeleteFunc(st.postTags, byPost)
	for cid, c := range st.comments {
		if c.PostID == id {
			delete(st.comments, cid)
		}
	}
	return nil
}

// FindByID returns a post of any status with its terms, or nil.
func (r *Posts) FindByID(_ context.Context, id int64) (*models.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.st.posts[id]
	if !ok {
		return nil, nil
	}
	r.withTerms(&p)
	return &p, nil
}

func (r *Posts) withTerms(p *models.Post) {
	st := &r.db.st
	p.Categories = []models.Category{}
	for _, l := range st.postCats {
		if l.postID == p.ID {
			p.Categories = append(p.Categories, st.categories[l.termID])
		}
	}
	p.Tags = []models.Tag{}
	for _, l := range st.postTags {
		if l.postID == p.ID {
			p.Tags = append(p.Tags, st.tags[l.termID])
		}
	}
}

func hasLink(links []link, postID int64, ids []int64) bool {
	for _, l := range links {
		if l.postID == postID && slices.Contains(ids, l.termID) {
			return true
		}
	}
	return false
}

// List mirrors store.PostStore.List: published posts only, filters ANDed,
// ids within a filter ORed.
func (r *Posts) List(_ context.Context, f models.PostFilter) ([]models.Post, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st := &r.db.st
	search := strings.ToLower(strings.TrimSpace(f.Search))

	matched := []models.Post{}
	for _, p := range st.posts {
		if !p.Status {
			continue
		}
		if len(f.CategoryIDs) > 0 && !hasLink(st.postCats, p.ID, f.CategoryIDs) {
			continue
		}
		if len(f.TagIDs) > 0 && !hasLink(st.postTags, p.ID, f.TagIDs) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		matched = append(matched, p)
	}

	asc := f.Ordering == models.OrderPublishedAsc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.PublishedDate.Equal(b.PublishedDate) {
			return a.PublishedDate.Before(b.PublishedDate) == asc
		}
		return (a.ID < b.ID) == asc
	})

	total := len(matched)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		matched = matched[start:end]
	}
	for i := range matched {
		r.withTerms(&matched[i])
	}
	return matched, total, nil
}

// SetCategories replaces the post's categories.
func (r *Posts) SetCategories(_ context.Context, postID int64, ids []int64) error {
	if err := r.db.fail("SetCategories"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.st.postCats = replaceLinks(r.db.st.postCats, postID, ids)
	return nil
}

// SetTags replaces the post's tags.
func (r *Posts) SetTags(_ context.Context, postID int64, ids []int64) error {
	if err := r.db.fail("SetTags"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.st.postTags = replaceLinks(r.db.st.postTags, postID, ids)
	return nil
}

func replaceLinks(links []link, postID int64, ids []int64) []link {
	links = slices.DeleteFunc(links, func(l link) bool { return l.postID == postID })
	for _, id := range ids {
		l := link{postID: postID, termID: id}
		if !slices.Contains(links, l) {
			links = append(links, l)
		}
	}
	return links
}

// --- Comments ---

// Comments implements the comment repository.
type Comments struct{ db *DB }

// Comments returns the comment repository.
func (db *DB) Comments() *Comments { return &Comments{db: db} }

// List orders by comment text descending, then id descending.
func (r *Comments) List(_ context.Context, f models.CommentFilter) ([]models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	items := []models.Comment{}
	for _, c := range r.db.st.comments {
		if f.PostID != nil && c.PostID != *f.PostID {
			continue
		}
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Body != items[j].Body {
			return items[i].Body > items[j].Body
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// FindByID returns nil when no comment matches.
func (r *Comments) FindByID(_ context.Context, id int64) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.st.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// Create stores a comment and fills in its id and timestamps.
func (r *Comments) Create(_ context.Context, c *models.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	c.ID = r.db.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.st.comments[c.ID] = *c
	return nil
}

// Update saves the post and text of a comment.
func (r *Comments) Update(_ context.Context, c *models.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.comments[c.ID]; !ok {
		return nil
	}
	c.UpdatedAt = r.db.now()
	r.db.st.comments[c.ID] = *c
	return nil
}

// Delete removes a comment.
func (r *Comments) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.st.comments, id)
	return nil
}
