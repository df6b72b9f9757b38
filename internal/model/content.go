package model

import "time"

// ContentType enumerates the catalog's item kinds.
type ContentType string

const (
	ContentCourse  ContentType = "course"
	ContentArticle ContentType = "article"
	ContentVideo   ContentType = "video"
	ContentNews    ContentType = "news"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentCourse, ContentArticle, ContentVideo, ContentNews:
		return true
	}
	return false
}

// Difficulty grades course-style content.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is a known difficulty level. The empty value is
// allowed: difficulty is optional.
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Content is one catalog entry.
type Content struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	ContentType     ContentType `json:"contentType"`
	Category        string      `json:"category,omitempty"`
	Tags            []string    `json:"tags"`
	AuthorID        string      `json:"authorId,omitempty"`
	DifficultyLevel Difficulty  `json:"difficultyLevel,omitempty"`
	DurationMinutes int         `json:"durationMinutes,omitempty"`
	Language        string      `json:"language"`
	IsPublished     bool        `json:"isPublished"`
	PublishedAt     *time.Time  `json:"publishedAt,omitempty"`
	ViewCount       int         `json:"viewCount"`
	Rating          float64     `json:"rating"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ContentFilter narrows catalog listings. Zero values mean "no constraint".
type ContentFilter struct {
	ContentType ContentType
	Category    string
	Difficulty  Difficulty
	Language    string
	IsPublished *bool
	Search      string
	Page        int
	Limit       int
}
