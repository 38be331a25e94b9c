package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var articleSpec = listview.Spec[models.KBArticle]{
	Search: []func(models.KBArticle) string{
		func(a models.KBArticle) string { return a.Title },
		func(a models.KBArticle) string { return a.Content },
		func(a models.KBArticle) string { return a.Tags },
	},
	Filters: map[string]func(models.KBArticle) string{
		"category":     func(a models.KBArticle) string { return a.Category },
		"is_published": func(a models.KBArticle) string { return strconv.FormatBool(a.IsPublished) },
	},
	Sorts: map[string]func(a, b models.KBArticle) int{
		"created_at": listview.ByTime(func(a models.KBArticle) time.Time { return a.CreatedAt }),
		"title":      listview.ByString(func(a models.KBArticle) string { return a.Title }),
		"views":      listview.ByInt(func(a models.KBArticle) int { return a.Views }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

type ArticleInput struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug"`
	Content     string `json:"content"`
	Category    string `json:"category"`
	Tags        string `json:"tags"`
	IsPublished bool   `json:"is_published"`
}

type UpdateArticleInput struct {
	Title    *string `json:"title" binding:"omitempty,min=1"`
	Slug     *string `json:"slug" binding:"omitempty,min=1"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Tags     *string `json:"tags"`
}

// articleScreen shows customers published articles only.
func (h *Handler) articleScreen(c *gin.Context) *screen.Controller[models.KBArticle] {
	filter := store.Where().Order("created_at", true).Limit(h.limit)
	if !utils.CurrentSession(c).IsAdmin() {
		filter = filter.Eq("is_published", true)
	}
	return newScreen(h, c, screen.Config[models.KBArticle]{
		Name:  "knowledge_base",
		Fetch: fetchRows[models.KBArticle](h.store, store.KBArticles, filter),
		Spec:  articleSpec,
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	respondList(c, h.articleScreen(c), articleSpec, nil)
}

// normalizeTags trims and lower-cases a comma separated tag list.
func normalizeTags(tags string) string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

func (h *Handler) CreateArticle(c *gin.Context) {
	var input ArticleInput
	if !bind(c, &input) {
		return
	}
	slug := utils.Slugify(input.Slug)
	if slug == "" {
		slug = utils.Slugify(input.Title)
	}
	article := models.KBArticle{
		Title:       strings.TrimSpace(input.Title),
		Slug:        slug,
		Content:     input.Content,
		Category:    input.Category,
		Tags:        normalizeTags(input.Tags),
		IsPublished: input.IsPublished,
		AuthorID:    utils.CurrentSession(c).ActorID(),
	}
	respondMutation(c, h.articleScreen(c), articleSpec, http.StatusCreated, "Create article",
		func(ctx context.Context) (string, error) {
			return "Article created", store.InsertRow(ctx, h.store, store.KBArticles, &article)
		})
}

func (h *Handler) UpdateArticle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateArticleInput
	if !bind(c, &input) {
		return
	}
	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		updates["slug"] = utils.Slugify(*input.Slug)
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Tags != nil {
		updates["tags"] = normalizeTags(*input.Tags)
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}
	respondMutation(c, h.articleScreen(c), articleSpec, http.StatusOK, "Update article",
		func(ctx context.Context) (string, error) {
			return "Article updated", store.UpdateByID(ctx, h.store, store.KBArticles, id, updates)
		})
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	respondMutation(c, h.articleScreen(c), articleSpec, http.StatusOK, "Delete article",
		func(ctx context.Context) (string, error) {
			return "Article deleted", store.DeleteByID(ctx, h.store, store.KBArticles, id)
		})
}

// ToggleArticlePublished flips is_published.
func (h *Handler) ToggleArticlePublished(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	respondMutation(c, h.articleScreen(c), articleSpec, http.StatusOK, "Publish article",
		func(ctx context.Context) (string, error) {
			var a models.KBArticle
			if err := store.Get(ctx, h.store, store.KBArticles, id, &a); err != nil {
				return "", err
			}
			if err := store.UpdateByID(ctx, h.store, store.KBArticles, id, map[string]interface{}{"is_published": !a.IsPublished}); err != nil {
				return "", err
			}
			if a.IsPublished {
				return "Article unpublished", nil
			}
			return "Article published", nil
		})
}

// RecordArticleView bumps the view counter. It is silent: no toast and no
// reload.
func (h *Handler) RecordArticleView(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var a models.KBArticle
	if err := store.Get(ctx, h.store, store.KBArticles, id, &a); err != nil {
		apperr.Respond(c, err)
		return
	}
	if !a.IsPublished && !utils.CurrentSession(c).IsAdmin() {
		apperr.Respond(c, apperr.NotFound("Article"))
		return
	}
	if err := store.UpdateByID(ctx, h.store, store.KBArticles, id, map[string]interface{}{"views": gorm.Expr("views + 1")}); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": a.Views + 1})
}
