package handlers

import (
	"net/http"
	"testing"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
)

func TestArticleLifecycle(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/articles", map[string]interface{}{
		"slug":      "summer-soups",
		"title":     "Summer Soups",
		"excerpt":   "Five chilled soups.",
		"body":      "Gazpacho first.",
		"published": true,
		"tags":      []string{"soup", "summer"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var article database.Article
	decodeData(t, envelope, &article)
	if article.ID == 0 || article.Slug != "summer-soups" {
		t.Fatalf("article = %+v", article)
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/articles/summer-soups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	decodeData(t, envelope, &article)
	if len(article.Tags) != 2 {
		t.Errorf("tags = %v", article.Tags)
	}

	rec, envelope = doJSON(t, router, http.MethodPut, "/api/articles/summer-soups", map[string]interface{}{
		"title":     "Summer Soups, Revised",
		"published": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeData(t, envelope, &article)
	if article.Title != "Summer Soups, Revised" || article.Published {
		t.Errorf("updated article = %+v", article)
	}

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/articles/summer-soups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/articles/summer-soups", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
	if code := errorCode(t, envelope); code != CodeNotFound {
		t.Errorf("code = %q", code)
	}
}

func TestArticleValidation(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing slug", map[string]interface{}{"title": "x"}},
		{"bad slug", map[string]interface{}{"slug": "Not A Slug!", "title": "x"}},
		{"missing title", map[string]interface{}{"slug": "ok-slug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, envelope := doJSON(t, router, http.MethodPost, "/api/articles", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, envelope); code != CodeValidation {
				t.Errorf("code = %q", code)
			}
		})
	}
}

func TestListArticlesPublishedFilter(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	doJSON(t, router, http.MethodPost, "/api/articles",
		map[string]interface{}{"slug": "live-post", "title": "Live", "published": true})
	doJSON(t, router, http.MethodPost, "/api/articles",
		map[string]interface{}{"slug": "draft-post", "title": "Draft", "published": false})

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/articles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var articles []database.Article
	decodeData(t, envelope, &articles)
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/articles?published=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	decodeData(t, envelope, &articles)
	if len(articles) != 1 || articles[0].Slug != "live-post" {
		t.Errorf("published articles = %+v", articles)
	}
}

func TestRecipeLifecycle(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/recipes", map[string]interface{}{
		"slug":        "tomato-gazpacho",
		"title":       "Tomato Gazpacho",
		"description": "No-cook chilled soup.",
		"ingredients": []map[string]interface{}{{"item": "tomatoes", "qty": "1kg"}},
		"steps":       []string{"Blend.", "Chill."},
		"prepMinutes": 15,
		"servings":    4,
		"published":   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var recipe database.Recipe
	decodeData(t, envelope, &recipe)
	if recipe.ID == 0 || recipe.PrepMinutes != 15 {
		t.Fatalf("recipe = %+v", recipe)
	}
	if len(recipe.Ingredients) == 0 {
		t.Error("ingredients not persisted")
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/recipes/tomato-gazpacho", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/recipes/tomato-gazpacho", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodDelete, "/api/recipes/tomato-gazpacho", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/categories",
		map[string]interface{}{"slug": "soups", "name": "Soups"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var category database.Category
	decodeData(t, envelope, &category)
	if category.ID == 0 || category.Name != "Soups" {
		t.Fatalf("category = %+v", category)
	}

	// Creating the same slug again returns the existing row.
	rec, envelope = doJSON(t, router, http.MethodPost, "/api/categories",
		map[string]interface{}{"slug": "soups", "name": "Renamed"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("repeat create status = %d", rec.Code)
	}
	var again database.Category
	decodeData(t, envelope, &again)
	if again.ID != category.ID {
		t.Errorf("expected the existing category, got %+v", again)
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var categories []database.Category
	decodeData(t, envelope, &categories)
	if len(categories) != 1 {
		t.Errorf("categories = %+v", categories)
	}

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/categories/"+itoa(category.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodDelete, "/api/categories/"+itoa(category.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListTags(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	doJSON(t, router, http.MethodPost, "/api/articles", map[string]interface{}{
		"slug": "a-post", "title": "A", "tags": []string{"soup", "summer"},
	})
	doJSON(t, router, http.MethodPost, "/api/articles", map[string]interface{}{
		"slug": "b-post", "title": "B", "tags": []string{"soup"},
	})

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/tags", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var tags []database.Tag
	decodeData(t, envelope, &tags)
	if len(tags) != 2 {
		t.Fatalf("tags = %+v", tags)
	}

	counts := map[string]int{}
	for _, tag := range tags {
		counts[tag.Name] = tag.ItemCount
	}
	if counts["soup"] != 2 || counts["summer"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestHealthAndVersion(t *testing.T) {
	t.Parallel()

	_, router, _ := newTestHandlers(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("version status = %d", rec.Code)
	}
}
