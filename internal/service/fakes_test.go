package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"clipshare/internal/cache"
	"clipshare/internal/model"
	"clipshare/internal/queue"
	"clipshare/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres schema. Each repository
// fake is a thin view over it so services see one consistent state.
type memDB struct {
	mu        sync.Mutex
	nextID    int64
	clock     time.Time
	users     map[int64]*model.User
	follows   map[[2]int64]time.Time
	posts     map[int64]*model.Post
	comments  map[int64]*model.Comment
	reactions map[reactionKey]model.ReactionKind
}

type reactionKey struct {
	entity model.EntityType
	id     int64
	user   int64
}

func newMemDB() *memDB {
	return &memDB{
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     map[int64]*model.User{},
		follows:   map[[2]int64]time.Time{},
		posts:     map[int64]*model.Post{},
		comments:  map[int64]*model.Comment{},
		reactions: map[reactionKey]model.ReactionKind{},
	}
}

// tick returns a strictly increasing timestamp and id.
func (db *memDB) tick() (int64, time.Time) {
	db.nextID++
	db.clock = db.clock.Add(time.Second)
	return db.nextID, db.clock
}

func (db *memDB) addUser(username string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.tick()
	db.users[id] = &model.User{ID: id, Username: username, Email: username + "@example.com", CreatedAt: now, UpdatedAt: now}
	return id
}

func (db *memDB) addPost(ownerID int64, kind model.PostKind, public bool) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.tick()
	url := "https://cdn.example.com/v.mp4"
	db.posts[id] = &model.Post{ID: id, UserID: ownerID, Kind: kind, Title: "post", VideoURL: &url, IsPublic: public, CreatedAt: now, UpdatedAt: now}
	return id
}

func (db *memDB) user(id int64) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.users[id]
}

func (db *memDB) post(id int64) model.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.posts[id]
}

func (db *memDB) comment(id int64) (model.Comment, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.comments[id]
	if !ok {
		return model.Comment{}, false
	}
	return *c, true
}

// trueDescendants counts live comments below rootID by scanning parents.
func (db *memDB) trueDescendants(rootID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		var next []int64
		for _, c := range db.comments {
			if c.ParentCommentID == nil {
				continue
			}
			for _, p := range frontier {
				if *c.ParentCommentID == p {
					next = append(next, c.ID)
				}
			}
		}
		n += len(next)
		frontier = next
	}
	return n
}

func summaryOf(u *model.User) model.UserSummary {
	return u.Summary()
}

func pageSlice[T any](items []T, page model.PageRequest) []T {
	start := min(page.Offset(), len(items))
	end := min(start+page.Limit+1, len(items))
	return items[start:end]
}

type fakeTx struct{}

func (fakeTx) WithinTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

// ---------------------------------------------------------------------------
// users

type memUsers struct{ db *memDB }

var _ repository.UserRepository = memUsers{}

func (r memUsers) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.tick()
	user.ID, user.CreatedAt, user.UpdatedAt = id, now, now
	cp := *user
	r.db.users[id] = &cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) find(match func(*model.User) bool) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memUsers) Exists(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.users[id]
	return ok, nil
}

func (r memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r memUsers) GetSummaries(_ context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]model.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			out[id] = summaryOf(u)
		}
	}
	return out, nil
}

func (r memUsers) Search(_ context.Context, query string, page model.PageRequest) ([]model.UserSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.UserSummary
	for _, u := range r.db.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			out = append(out, summaryOf(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pageSlice(out, page), nil
}

func (r memUsers) UpdateProfile(_ context.Context, id int64, displayName, bio *string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if displayName != nil {
		u.DisplayName = displayName
	}
	if bio != nil {
		u.Bio = bio
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) adjust(userID int64, apply func(*model.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	apply(u)
	return nil
}

func (r memUsers) AdjustFollowerCount(_ context.Context, _ *sqlx.Tx, userID int64, delta int) error {
	return r.adjust(userID, func(u *model.User) { u.FollowerCount = max(0, u.FollowerCount+delta) })
}

func (r memUsers) AdjustFollowingCount(_ context.Context, _ *sqlx.Tx, userID int64, delta int) error {
	return r.adjust(userID, func(u *model.User) { u.FollowingCount = max(0, u.FollowingCount+delta) })
}

func (r memUsers) AdjustPostCount(_ context.Context, _ *sqlx.Tx, userID int64, delta int) error {
	return r.adjust(userID, func(u *model.User) { u.PostCount = max(0, u.PostCount+delta) })
}

func (r memUsers) RecountFollowCounts(_ context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return nil
	}
	u.FollowerCount, u.FollowingCount = 0, 0
	for edge := range r.db.follows {
		if edge[1] == userID {
			u.FollowerCount++
		}
		if edge[0] == userID {
			u.FollowingCount++
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// follows

type memFollows struct{ db *memDB }

var _ repository.FollowRepository = memFollows{}

func (r memFollows) Create(_ context.Context, _ *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{followerID, followeeID}
	if _, ok := r.db.follows[key]; ok {
		return false, nil
	}
	_, now := r.db.tick()
	r.db.follows[key] = now
	return true, nil
}

func (r memFollows) Delete(_ context.Context, _ *sqlx.Tx, followerID, followeeID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{followerID, followeeID}
	if _, ok := r.db.follows[key]; !ok {
		return model.ErrNotFollowing
	}
	delete(r.db.follows, key)
	return nil
}

func (r memFollows) Exists(_ context.Context, followerID, followeeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.follows[[2]int64{followerID, followeeID}]
	return ok, nil
}

// edges lists the users on the other side of userID's edges, newest first.
func (r memFollows) edges(userID int64, side int) []model.UserSummary {
	type entry struct {
		id int64
		at time.Time
	}
	var entries []entry
	for edge, at := range r.db.follows {
		if edge[side] == userID {
			entries = append(entries, entry{id: edge[1-side], at: at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	out := make([]model.UserSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summaryOf(r.db.users[e.id]))
	}
	return out
}

func (r memFollows) ListFollowers(_ context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return pageSlice(r.edges(userID, 1), page), nil
}

func (r memFollows) ListFollowing(_ context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return pageSlice(r.edges(userID, 0), page), nil
}

func (r memFollows) CheckFollows(_ context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]bool, len(followeeIDs))
	for _, id := range followeeIDs {
		_, out[id] = r.db.follows[[2]int64{followerID, id}]
	}
	return out, nil
}

func (r memFollows) GetFolloweeIDs(_ context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []int64
	for edge := range r.db.follows {
		if edge[0] == userID {
			ids = append(ids, edge[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ---------------------------------------------------------------------------
// posts

type memPosts struct{ db *memDB }

var _ repository.PostRepository = memPosts{}

func (r memPosts) Create(_ context.Context, _ *sqlx.Tx, post *model.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.tick()
	post.ID, post.CreatedAt, post.UpdatedAt = id, now, now
	cp := *post
	r.db.posts[id] = &cp
	return nil
}

func (r memPosts) GetByID(_ context.Context, postID int64) (*model.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memPosts) List(_ context.Context, q repository.PostQuery, page model.PageRequest) ([]model.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	owners := make(map[int64]bool, len(q.Owners))
	for _, id := range q.Owners {
		owners[id] = true
	}
	var out []model.Post
	for _, p := range r.db.posts {
		switch {
		case q.Owners != nil && !owners[p.UserID]:
		case q.ExcludeOwner != nil && *q.ExcludeOwner == p.UserID:
		case q.Kind != nil && *q.Kind != p.Kind:
		case q.PublicOnly && !p.IsPublic:
		case q.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Search)):
		default:
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageSlice(out, page), nil
}

func (r memPosts) AttachImages(context.Context, []model.Post) error { return nil }

func (r memPosts) IncrementViews(_ context.Context, postID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.posts[postID]; ok {
		p.Views++
	}
	return nil
}

func (r memPosts) Delete(_ context.Context, _ *sqlx.Tx, postID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.posts, postID)
	return nil
}

func (r memPosts) Exists(_ context.Context, postID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.posts[postID]
	return ok, nil
}

func (r memPosts) CommentCount(_ context.Context, _ *sqlx.Tx, postID int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[postID]
	if !ok {
		return 0, model.ErrPostNotFound
	}
	return p.CommentCount, nil
}

func (r memPosts) AdjustCommentCount(_ context.Context, _ *sqlx.Tx, postID int64, delta int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.posts[postID]; ok {
		p.CommentCount = max(0, p.CommentCount+delta)
	}
	return nil
}

func (r memPosts) RecountCommentCount(_ context.Context, postID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[postID]
	if !ok {
		return nil
	}
	p.CommentCount = 0
	for _, c := range r.db.comments {
		if c.PostID == postID && c.ParentCommentID == nil {
			p.CommentCount++
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// comments

type memComments struct{ db *memDB }

var _ repository.CommentRepository = memComments{}

func (r memComments) Create(_ context.Context, _ *sqlx.Tx, comment *model.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, now := r.db.tick()
	comment.ID, comment.CreatedAt = id, now
	cp := *comment
	r.db.comments[id] = &cp
	return nil
}

func (r memComments) GetByID(_ context.Context, commentID int64) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memComments) GetRef(ctx context.Context, commentID int64) (*model.CommentRef, error) {
	c, err := r.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return &model.CommentRef{ID: c.ID, PostID: c.PostID, ParentCommentID: c.ParentCommentID}, nil
}

func (r memComments) Exists(_ context.Context, commentID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.comments[commentID]
	return ok, nil
}

func (r memComments) Update(_ context.Context, commentID int64, content string, editedAt time.Time) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	c.Content, c.IsEdited, c.EditedAt = content, true, &editedAt
	cp := *c
	return &cp, nil
}

func (r memComments) ListTopLevel(_ context.Context, postID int64, page model.PageRequest) ([]model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Comment
	for _, c := range r.db.comments {
		if c.PostID == postID && c.ParentCommentID == nil {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageSlice(out, page), nil
}

func (r memComments) ListChildren(_ context.Context, parentIDs []int64) ([]model.CommentRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	parents := make(map[int64]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	var out []model.CommentRef
	for _, c := range r.db.comments {
		if c.ParentCommentID != nil && parents[*c.ParentCommentID] {
			out = append(out, model.CommentRef{ID: c.ID, PostID: c.PostID, ParentCommentID: c.ParentCommentID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memComments) GetByIDs(_ context.Context, ids []int64) (map[int64]model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]model.Comment, len(ids))
	for _, id := range ids {
		if c, ok := r.db.comments[id]; ok {
			out[id] = *c
		}
	}
	return out, nil
}

func (r memComments) AdjustReplyCount(_ context.Context, _ *sqlx.Tx, rootID int64, delta int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.comments[rootID]; ok {
		c.ReplyCount = max(0, c.ReplyCount+delta)
	}
	return nil
}

func (r memComments) SetReplyCount(_ context.Context, rootID int64, expected, count int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[rootID]
	if !ok || c.ReplyCount != expected {
		return false, nil
	}
	c.ReplyCount = count
	return true, nil
}

func (r memComments) DeleteByIDs(_ context.Context, _ *sqlx.Tx, ids []int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.db.comments[id]; ok {
			delete(r.db.comments, id)
			n++
		}
	}
	return n, nil
}

func (r memComments) FindOrphans(_ context.Context, limit int) ([]model.CommentRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.CommentRef
	for _, c := range r.db.comments {
		if c.ParentCommentID == nil {
			continue
		}
		if _, ok := r.db.comments[*c.ParentCommentID]; !ok {
			out = append(out, model.CommentRef{ID: c.ID, PostID: c.PostID, ParentCommentID: c.ParentCommentID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memComments) ListRoots(_ context.Context, afterID int64, limit int) ([]model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Comment
	for _, c := range r.db.comments {
		if c.ParentCommentID == nil && c.ID > afterID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// reactions

type memReactions struct{ db *memDB }

var _ repository.ReactionRepository = memReactions{}

func (r memReactions) GetForUpdate(_ context.Context, _ *sqlx.Tx, ref model.EntityRef, userID int64) (*model.ReactionKind, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kind, ok := r.db.reactions[reactionKey{ref.Type, ref.ID, userID}]
	if !ok {
		return nil, nil
	}
	return &kind, nil
}

func (r memReactions) Set(_ context.Context, _ *sqlx.Tx, ref model.EntityRef, userID int64, kind model.ReactionKind) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.reactions[reactionKey{ref.Type, ref.ID, userID}] = kind
	return nil
}

func (r memReactions) Delete(_ context.Context, _ *sqlx.Tx, ref model.EntityRef, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.reactions, reactionKey{ref.Type, ref.ID, userID})
	return nil
}

func (r memReactions) Summaries(_ context.Context, entity model.EntityType, ids []int64, viewerID *int64) (map[int64]model.Reactions, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]model.Reactions, len(ids))
	for _, id := range ids {
		var s model.Reactions
		for key, kind := range r.db.reactions {
			if key.entity != entity || key.id != id {
				continue
			}
			mine := viewerID != nil && key.user == *viewerID
			switch kind {
			case model.ReactionLike:
				s.Likes++
				s.IsLiked = s.IsLiked || mine
			case model.ReactionDislike:
				s.Dislikes++
				s.IsDisliked = s.IsDisliked || mine
			}
		}
		out[id] = s
	}
	return out, nil
}

func (r memReactions) DeleteForEntities(_ context.Context, _ *sqlx.Tx, entity model.EntityType, ids []int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for key := range r.db.reactions {
		if key.entity == entity && drop[key.id] {
			delete(r.db.reactions, key)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// queue and cache

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "1-0", nil
}

func (p *recordingPublisher) Events() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

type mapFollowingCache struct {
	mu          sync.Mutex
	sets        map[int64][]int64
	gens        map[int64]int64
	invalidated []int64
	getErr      error
	// beforeSet runs ahead of every Set, outside the lock.
	beforeSet func(userID int64)
}

func newMapFollowingCache() *mapFollowingCache {
	return &mapFollowingCache{sets: map[int64][]int64{}, gens: map[int64]int64{}}
}

func (c *mapFollowingCache) Get(_ context.Context, userID int64) ([]int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	ids, ok := c.sets[userID]
	return ids, ok, nil
}

func (c *mapFollowingCache) Generation(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *mapFollowingCache) Set(_ context.Context, userID, gen int64, ids []int64) error {
	if c.beforeSet != nil {
		c.beforeSet(userID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return cache.ErrStaleFollowing
	}
	c.sets[userID] = append([]int64(nil), ids...)
	return nil
}

func (c *mapFollowingCache) Invalidate(_ context.Context, userIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.gens[id]++
		delete(c.sets, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// wiring

type testEnv struct {
	db        *memDB
	publisher *recordingPublisher
	cache     *mapFollowingCache

	reactions *ReactionService
	comments  *CommentService
	follows   *FollowService
	feed      *FeedService
	posts     *PostService
	search    *SearchService
	integrity *IntegrityService
}

func newTestEnv() *testEnv {
	db := newMemDB()
	users, follows := memUsers{db}, memFollows{db}
	posts, comments, reactions := memPosts{db}, memComments{db}, memReactions{db}
	pub := &recordingPublisher{}
	fc := newMapFollowingCache()

	reactionSvc := NewReactionService(reactions, posts, comments, fakeTx{}, nil)
	postSvc := NewPostService(posts, users, reactionSvc, fakeTx{}, nil)
	return &testEnv{
		db:        db,
		publisher: pub,
		cache:     fc,
		reactions: reactionSvc,
		comments:  NewCommentService(comments, posts, users, reactions, reactionSvc, fakeTx{}, pub, nil),
		follows:   NewFollowService(follows, users, fakeTx{}, fc, pub, nil),
		feed:      NewFeedService(follows, posts, users, reactionSvc, fc, nil),
		posts:     postSvc,
		search:    NewSearchService(postSvc, users, follows),
		integrity: NewIntegrityService(comments, posts, users, reactions, fakeTx{}, nil),
	}
}

func ptr[T any](v T) *T { return &v }
