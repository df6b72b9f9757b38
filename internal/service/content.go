package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/osvitahub/backend/internal/cache"
	"github.com/osvitahub/backend/internal/model"
)

// ErrForbidden is returned when a principal may not mutate the target entry.
var ErrForbidden = errors.New("insufficient permissions for this content")

// ContentStore is the persistence contract consumed by ContentService.
type ContentStore interface {
	Create(ctx context.Context, c *model.Content) (*model.Content, error)
	FindByID(ctx context.Context, id string) (*model.Content, error)
	Save(ctx context.Context, c *model.Content) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	List(ctx context.Context, filter model.ContentFilter) ([]model.Content, int, error)
}

// ContentService implements catalog CRUD with cache-aside listings.
type ContentService struct {
	contents ContentStore
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewContentService wires the catalog orchestration. cache may be nil to
// disable listing caching.
func NewContentService(contents ContentStore, listCache *cache.Cache, logger *slog.Logger) *ContentService {
	return &ContentService{contents: contents, cache: listCache, logger: logger}
}

// ListPage is the cacheable result of one listing query.
type ListPage struct {
	Items      []model.Content   `json:"items"`
	Pagination *model.Pagination `json:"pagination"`
}

// List serves one catalog page, trying the cache first. Cache failures are
// logged and fall through to the database.
func (s *ContentService) List(ctx context.Context, filter model.ContentFilter) (*ListPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	key := listCacheKey(filter)
	if s.cache != nil {
		var page ListPage
		err := s.cache.Get(ctx, key, &page)
		if err == nil {
			return &page, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("content list cache read failed", "error", err)
		}
	}

	items, total, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Content{}
	}

	page := &ListPage{
		Items:      items,
		Pagination: model.NewPagination(filter.Page, filter.Limit, total),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, page); err != nil {
			s.logger.Warn("content list cache write failed", "error", err)
		}
	}

	return page, nil
}

// Get returns one entry and bumps its view counter. The counter update is
// best effort; a failed bump must not fail the read.
func (s *ContentService) Get(ctx context.Context, id string) (*model.Content, error) {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.contents.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("view count increment failed", "content", id, "error", err)
	} else {
		content.ViewCount++
	}

	return content, nil
}

// Create inserts a new entry authored by the principal.
func (s *ContentService) Create(ctx context.Context, p *model.Principal, c *model.Content) (*model.Content, error) {
	c.AuthorID = p.ID

	created, err := s.contents.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	s.invalidateListings(ctx)
	s.logger.Info("content created", "content", created.ID, "author", p.ID)
	return created, nil
}

// ContentUpdate carries the optional entry fields; nil means unchanged.
type ContentUpdate struct {
	Title           *string
	Description     *string
	ContentType     *model.ContentType
	Category        *string
	Tags            []string
	DifficultyLevel *model.Difficulty
	DurationMinutes *int
	Language        *string
	IsPublished     *bool
	Rating          *float64
}

// Update applies a partial update. Only the author, moderators and admins
// may update an entry. Publishing stamps publishedAt exactly once.
func (s *ContentService) Update(ctx context.Context, p *model.Principal, id string, upd ContentUpdate) (*model.Content, error) {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canMutate(p, content, model.RoleModerator, model.RoleAdmin) {
		return nil, ErrForbidden
	}

	if upd.Title != nil {
		content.Title = *upd.Title
	}
	if upd.Description != nil {
		content.Description = *upd.Description
	}
	if upd.ContentType != nil {
		content.ContentType = *upd.ContentType
	}
	if upd.Category != nil {
		content.Category = *upd.Category
	}
	if upd.Tags != nil {
		content.Tags = upd.Tags
	}
	if upd.DifficultyLevel != nil {
		content.DifficultyLevel = *upd.DifficultyLevel
	}
	if upd.DurationMinutes != nil {
		content.DurationMinutes = *upd.DurationMinutes
	}
	if upd.Language != nil {
		content.Language = *upd.Language
	}
	if upd.Rating != nil {
		content.Rating = *upd.Rating
	}
	if upd.IsPublished != nil {
		if *upd.IsPublished && !content.IsPublished && content.PublishedAt == nil {
			now := time.Now()
			content.PublishedAt = &now
		}
		content.IsPublished = *upd.IsPublished
	}

	if err := s.contents.Save(ctx, content); err != nil {
		return nil, err
	}

	s.invalidateListings(ctx)
	s.logger.Info("content updated", "content", id, "by", p.ID)
	return content, nil
}

// Delete removes an entry. Only the author and admins may delete.
func (s *ContentService) Delete(ctx context.Context, p *model.Principal, id string) error {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !canMutate(p, content, model.RoleAdmin) {
		return ErrForbidden
	}

	if err := s.contents.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateListings(ctx)
	s.logger.Info("content deleted", "content", id, "by", p.ID)
	return nil
}

func canMutate(p *model.Principal, c *model.Content, elevated ...model.Role) bool {
	if p.ID != "" && p.ID == c.AuthorID {
		return true
	}
	for _, role := range elevated {
		if p.Role == role {
			return true
		}
	}
	return false
}

func (s *ContentService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("content list cache invalidation failed", "error", err)
	}
}

func listCacheKey(f model.ContentFilter) string {
	raw, _ := json.Marshal(f)
	return fmt.Sprintf("list:%s", raw)
}
