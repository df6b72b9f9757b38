package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/middleware"
	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/service"
)

// ContentHandler serves the catalog endpoints of the content service.
type ContentHandler struct {
	svc *service.ContentService
}

// NewContentHandler wires the catalog endpoints.
func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type createContentRequest struct {
	Title           string   `json:"title" binding:"required,min=3,max=500"`
	Description     string   `json:"description"`
	ContentType     string   `json:"contentType" binding:"required,oneof=course article video news"`
	Category        string   `json:"category" binding:"omitempty,max=100"`
	Tags            []string `json:"tags"`
	DifficultyLevel string   `json:"difficultyLevel" binding:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes int      `json:"durationMinutes" binding:"omitempty,min=0"`
	Language        string   `json:"language" binding:"omitempty,max=10"`
	IsPublished     bool     `json:"isPublished"`
}

type updateContentRequest struct {
	Title           *string  `json:"title" binding:"omitempty,min=3,max=500"`
	Description     *string  `json:"description"`
	ContentType     *string  `json:"contentType" binding:"omitempty,oneof=course article video news"`
	Category        *string  `json:"category" binding:"omitempty,max=100"`
	Tags            []string `json:"tags"`
	DifficultyLevel *string  `json:"difficultyLevel" binding:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes *int     `json:"durationMinutes" binding:"omitempty,min=0"`
	Language        *string  `json:"language" binding:"omitempty,max=10"`
	IsPublished     *bool    `json:"isPublished"`
	Rating          *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
}

// List handles GET /.
func (h *ContentHandler) List(c *gin.Context) {
	filter := model.ContentFilter{
		ContentType: model.ContentType(c.Query("contentType")),
		Category:    c.Query("category"),
		Difficulty:  model.Difficulty(c.Query("difficulty")),
		Language:    c.Query("language"),
		Search:      c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	if v := c.Query("isPublished"); v != "" {
		published := v == "true"
		filter.IsPublished = &published
	}

	if filter.ContentType != "" && !filter.ContentType.Valid() {
		c.JSON(http.StatusBadRequest, model.Fail("Unknown content type"))
		return
	}
	if !filter.Difficulty.Valid() {
		c.JSON(http.StatusBadRequest, model.Fail("Unknown difficulty level"))
		return
	}

	page, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success:    true,
		Data:       gin.H{"content": page.Items},
		Pagination: page.Pagination,
	})
}

// Get handles GET /:id.
func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OK(gin.H{"content": content}))
}

// Create handles POST /.
func (h *ContentHandler) Create(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	var req createContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	content, err := h.svc.Create(c.Request.Context(), p, &model.Content{
		Title:           req.Title,
		Description:     req.Description,
		ContentType:     model.ContentType(req.ContentType),
		Category:        req.Category,
		Tags:            req.Tags,
		DifficultyLevel: model.Difficulty(req.DifficultyLevel),
		DurationMinutes: req.DurationMinutes,
		Language:        req.Language,
		IsPublished:     req.IsPublished,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.OKMessage("Content created successfully", gin.H{"content": content}))
}

// Update handles PUT /:id.
func (h *ContentHandler) Update(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	upd := service.ContentUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Tags:            req.Tags,
		DurationMinutes: req.DurationMinutes,
		Language:        req.Language,
		IsPublished:     req.IsPublished,
		Rating:          req.Rating,
	}
	if req.ContentType != nil {
		ct := model.ContentType(*req.ContentType)
		upd.ContentType = &ct
	}
	if req.DifficultyLevel != nil {
		d := model.Difficulty(*req.DifficultyLevel)
		upd.DifficultyLevel = &d
	}

	content, err := h.svc.Update(c.Request.Context(), p, c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OKMessage("Content updated successfully", gin.H{"content": content}))
}

// Delete handles DELETE /:id.
func (h *ContentHandler) Delete(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, model.Fail("Unauthorized"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "Content deleted successfully"})
}
