package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/osvitahub/backend/internal/cache"
	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/store"
)

// fakeContentStore is an in-memory ContentStore. listCalls counts database
// listings so cache hits are observable.
type fakeContentStore struct {
	entries   map[string]*model.Content
	listCalls int
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{entries: make(map[string]*model.Content)}
}

func (f *fakeContentStore) Create(_ context.Context, c *model.Content) (*model.Content, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Language == "" {
		c.Language = "uk"
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	f.entries[c.ID] = &cp
	return c, nil
}

func (f *fakeContentStore) FindByID(_ context.Context, id string) (*model.Content, error) {
	c, ok := f.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContentStore) Save(_ context.Context, c *model.Content) error {
	if _, ok := f.entries[c.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *c
	f.entries[c.ID] = &cp
	return nil
}

func (f *fakeContentStore) Delete(_ context.Context, id string) error {
	if _, ok := f.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeContentStore) IncrementViews(_ context.Context, id string) error {
	c, ok := f.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	c.ViewCount++
	return nil
}

func (f *fakeContentStore) List(_ context.Context, filter model.ContentFilter) ([]model.Content, int, error) {
	f.listCalls++

	var matched []model.Content
	for _, c := range f.entries {
		if filter.ContentType != "" && c.ContentType != filter.ContentType {
			continue
		}
		if filter.IsPublished != nil && c.IsPublished != *filter.IsPublished {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type contentFixture struct {
	svc   *ContentService
	store *fakeContentStore
	mr    *miniredis.Miniredis
}

func newContentFixture(t *testing.T, withCache bool) *contentFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cs := newFakeContentStore()

	var listCache *cache.Cache
	var mr *miniredis.Miniredis
	if withCache {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis start: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			rdb.Close()
			mr.Close()
		})
		listCache = cache.New(rdb, "content:", 5*time.Minute)
	}

	return &contentFixture{
		svc:   NewContentService(cs, listCache, logger),
		store: cs,
		mr:    mr,
	}
}

func asUser(id string) *model.Principal {
	return &model.Principal{ID: id, Email: id + "@x.com", Role: model.RoleUser}
}

func asRole(id string, role model.Role) *model.Principal {
	return &model.Principal{ID: id, Email: id + "@x.com", Role: role}
}

func TestContentCreateSetsAuthor(t *testing.T) {
	f := newContentFixture(t, false)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, asRole("mod-1", model.RoleModerator), &model.Content{
		Title:       "Go Basics",
		ContentType: model.ContentCourse,
		AuthorID:    "someone-else", // must be overridden
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.AuthorID != "mod-1" {
		t.Fatalf("author = %q, want the calling principal", created.AuthorID)
	}
}

func TestContentGetBumpsViews(t *testing.T) {
	f := newContentFixture(t, false)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, asUser("u-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})

	got, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ViewCount != 1 {
		t.Fatalf("view count = %d, want 1", got.ViewCount)
	}

	got, _ = f.svc.Get(ctx, created.ID)
	if got.ViewCount != 2 {
		t.Fatalf("view count = %d, want 2", got.ViewCount)
	}
}

func TestContentGetMissing(t *testing.T) {
	f := newContentFixture(t, false)

	_, err := f.svc.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestContentUpdatePermissions(t *testing.T) {
	f := newContentFixture(t, false)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, asUser("author-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})
	newTitle := "B"

	cases := []struct {
		name      string
		principal *model.Principal
		wantErr   error
	}{
		{"author", asUser("author-1"), nil},
		{"other user", asUser("stranger"), ErrForbidden},
		{"moderator", asRole("mod-1", model.RoleModerator), nil},
		{"admin", asRole("admin-1", model.RoleAdmin), nil},
	}
	for _, tc := range cases {
		_, err := f.svc.Update(ctx, tc.principal, created.ID, ContentUpdate{Title: &newTitle})
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestContentDeletePermissions(t *testing.T) {
	f := newContentFixture(t, false)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, asUser("author-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})

	// Moderators may edit but not delete someone else's entry.
	if err := f.svc.Delete(ctx, asRole("mod-1", model.RoleModerator), created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("moderator delete: want ErrForbidden, got %v", err)
	}
	if err := f.svc.Delete(ctx, asUser("stranger"), created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger delete: want ErrForbidden, got %v", err)
	}
	if err := f.svc.Delete(ctx, asUser("author-1"), created.ID); err != nil {
		t.Fatalf("author delete error: %v", err)
	}

	created2, _ := f.svc.Create(ctx, asUser("author-1"), &model.Content{Title: "C", ContentType: model.ContentArticle})
	if err := f.svc.Delete(ctx, asRole("admin-1", model.RoleAdmin), created2.ID); err != nil {
		t.Fatalf("admin delete error: %v", err)
	}
}

func TestContentPublishStampsOnce(t *testing.T) {
	f := newContentFixture(t, false)
	ctx := context.Background()
	author := asUser("author-1")

	created, _ := f.svc.Create(ctx, author, &model.Content{Title: "A", ContentType: model.ContentArticle})

	publish := true
	first, err := f.svc.Update(ctx, author, created.ID, ContentUpdate{IsPublished: &publish})
	if err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if first.PublishedAt == nil {
		t.Fatal("publishing must stamp publishedAt")
	}
	stamp := *first.PublishedAt

	unpublish := false
	if _, err := f.svc.Update(ctx, author, created.ID, ContentUpdate{IsPublished: &unpublish}); err != nil {
		t.Fatalf("unpublish error: %v", err)
	}
	second, err := f.svc.Update(ctx, author, created.ID, ContentUpdate{IsPublished: &publish})
	if err != nil {
		t.Fatalf("republish error: %v", err)
	}
	if second.PublishedAt == nil || !second.PublishedAt.Equal(stamp) {
		t.Fatalf("republish must keep the original stamp, got %v want %v", second.PublishedAt, stamp)
	}
}

func TestContentListUsesCache(t *testing.T) {
	f := newContentFixture(t, true)
	ctx := context.Background()

	f.svc.Create(ctx, asUser("u-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})
	filter := model.ContentFilter{Page: 1, Limit: 10}

	first, err := f.svc.List(ctx, filter)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if f.store.listCalls != 1 {
		t.Fatalf("listCalls = %d after first List, want 1", f.store.listCalls)
	}

	second, err := f.svc.List(ctx, filter)
	if err != nil {
		t.Fatalf("second List error: %v", err)
	}
	if f.store.listCalls != 1 {
		t.Fatalf("listCalls = %d after cached List, want 1", f.store.listCalls)
	}
	if len(second.Items) != len(first.Items) || second.Pagination.Total != first.Pagination.Total {
		t.Fatalf("cached page differs: %+v vs %+v", second, first)
	}
}

func TestContentMutationInvalidatesCache(t *testing.T) {
	f := newContentFixture(t, true)
	ctx := context.Background()

	f.svc.Create(ctx, asUser("u-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})
	filter := model.ContentFilter{Page: 1, Limit: 10}

	page, _ := f.svc.List(ctx, filter)
	if page.Pagination.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Pagination.Total)
	}

	f.svc.Create(ctx, asUser("u-1"), &model.Content{Title: "B", ContentType: model.ContentArticle})

	page, err := f.svc.List(ctx, filter)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Fatalf("total = %d after create, want 2 (stale cache served)", page.Pagination.Total)
	}
}

func TestContentListSurvivesCacheOutage(t *testing.T) {
	f := newContentFixture(t, true)
	ctx := context.Background()

	f.svc.Create(ctx, asUser("u-1"), &model.Content{Title: "A", ContentType: model.ContentArticle})
	f.mr.Close()

	page, err := f.svc.List(ctx, model.ContentFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List must fall through to the database: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(page.Items))
	}
}

func TestContentListClampsLimit(t *testing.T) {
	f := newContentFixture(t, false)

	page, err := f.svc.List(context.Background(), model.ContentFilter{Page: 0, Limit: 500})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != 100 {
		t.Fatalf("pagination = %+v, want page 1 limit 100", page.Pagination)
	}
}
