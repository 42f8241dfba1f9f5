package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func contentListOptions(r *http.Request) database.ContentListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	opts := database.ContentListOptions{
		Search:        q.Get("search"),
		PublishedOnly: q.Get("published") == "true",
		Limit:         limit,
		Offset:        offset,
	}
	if raw := q.Get("categoryId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			opts.CategoryID = &id
		}
	}
	return opts
}

// ListArticles returns articles with search and pagination.
func (h *Handlers) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.db.GetArticles(r.Context(), contentListOptions(r))
	if err != nil {
		logging.Error("Failed to list articles: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to list articles", nil)
		return
	}
	writeData(w, http.StatusOK, articles)
}

// GetArticle returns one article by slug, with its tags resolved.
func (h *Handlers) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.db.GetArticleBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		logging.Error("Failed to fetch article: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to fetch article", nil)
		return
	}
	if article == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "article not found", nil)
		return
	}
	writeData(w, http.StatusOK, article)
}

// CreateArticle inserts a new article, or updates the row when the slug
// already exists.
func (h *Handlers) CreateArticle(w http.ResponseWriter, r *http.Request) {
	h.saveArticle(w, r, "")
}

// UpdateArticle replaces the article at the path slug.
func (h *Handlers) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	h.saveArticle(w, r, mux.Vars(r)["slug"])
}

func (h *Handlers) saveArticle(w http.ResponseWriter, r *http.Request, pathSlug string) {
	var article database.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}
	if pathSlug != "" {
		article.Slug = pathSlug
	}

	if !slugPattern.MatchString(article.Slug) {
		writeValidationError(w, "slug must be lowercase alphanumerics and hyphens", nil)
		return
	}
	if strings.TrimSpace(article.Title) == "" {
		writeValidationError(w, "title is required", nil)
		return
	}

	stored, err := h.db.UpsertArticle(r.Context(), &article)
	if err != nil {
		logging.Error("Failed to save article %q: %v", article.Slug, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to save article", nil)
		return
	}

	if article.Tags != nil {
		if err := h.db.SetArticleTags(r.Context(), stored.ID, article.Tags); err != nil {
			logging.Error("Failed to set tags for article %q: %v", article.Slug, err)
			writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to save article tags", nil)
			return
		}
		stored.Tags = article.Tags
	}

	status := http.StatusOK
	if pathSlug == "" {
		status = http.StatusCreated
	}
	writeData(w, status, stored)
}

// DeleteArticle removes one article by slug.
func (h *Handlers) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	deleted, err := h.db.DeleteArticle(r.Context(), slug)
	if err != nil {
		logging.Error("Failed to delete article %q: %v", slug, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to delete article", nil)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, "article not found", nil)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListRecipes returns recipes with search and pagination.
func (h *Handlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.db.GetRecipes(r.Context(), contentListOptions(r))
	if err != nil {
		logging.Error("Failed to list recipes: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to list recipes", nil)
		return
	}
	writeData(w, http.StatusOK, recipes)
}

// GetRecipe returns one recipe by slug.
func (h *Handlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.db.GetRecipeBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		logging.Error("Failed to fetch recipe: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to fetch recipe", nil)
		return
	}
	if recipe == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "recipe not found", nil)
		return
	}
	writeData(w, http.StatusOK, recipe)
}

// CreateRecipe inserts a new recipe, or updates the row when the slug
// already exists.
func (h *Handlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	h.saveRecipe(w, r, "")
}

// UpdateRecipe replaces the recipe at the path slug.
func (h *Handlers) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	h.saveRecipe(w, r, mux.Vars(r)["slug"])
}

func (h *Handlers) saveRecipe(w http.ResponseWriter, r *http.Request, pathSlug string) {
	var recipe database.Recipe
	if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}
	if pathSlug != "" {
		recipe.Slug = pathSlug
	}

	if !slugPattern.MatchString(recipe.Slug) {
		writeValidationError(w, "slug must be lowercase alphanumerics and hyphens", nil)
		return
	}
	if strings.TrimSpace(recipe.Title) == "" {
		writeValidationError(w, "title is required", nil)
		return
	}

	stored, err := h.db.UpsertRecipe(r.Context(), &recipe)
	if err != nil {
		logging.Error("Failed to save recipe %q: %v", recipe.Slug, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to save recipe", nil)
		return
	}

	status := http.StatusOK
	if pathSlug == "" {
		status = http.StatusCreated
	}
	writeData(w, status, stored)
}

// DeleteRecipe removes one recipe by slug.
func (h *Handlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	deleted, err := h.db.DeleteRecipe(r.Context(), slug)
	if err != nil {
		logging.Error("Failed to delete recipe %q: %v", slug, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to delete recipe", nil)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, "recipe not found", nil)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListCategories returns all categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.GetCategories(r.Context())
	if err != nil {
		logging.Error("Failed to list categories: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to list categories", nil)
		return
	}
	writeData(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateCategory returns the category with the given slug, creating it if
// needed.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body", nil)
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		writeValidationError(w, "slug must be lowercase alphanumerics and hyphens", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeValidationError(w, "name is required", nil)
		return
	}

	category, err := h.db.GetOrCreateCategory(r.Context(), req.Slug, req.Name)
	if err != nil {
		logging.Error("Failed to create category %q: %v", req.Slug, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to create category", nil)
		return
	}
	writeData(w, http.StatusCreated, category)
}

// DeleteCategory removes one category by id. Articles keep running with a
// NULL category.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeValidationError(w, "invalid category id", nil)
		return
	}

	deleted, err := h.db.DeleteCategory(r.Context(), id)
	if err != nil {
		logging.Error("Failed to delete category %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to delete category", nil)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, "category not found", nil)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListTags returns every tag with its usage count.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.GetAllTags(r.Context())
	if err != nil {
		logging.Error("Failed to list tags: %v", err)
		writeError(w, http.StatusInternalServerError, CodeDatabase, "failed to list tags", nil)
		return
	}
	writeData(w, http.StatusOK, tags)
}
