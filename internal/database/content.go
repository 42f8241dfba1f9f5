package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentListOptions controls filtering and pagination for article and
// recipe listings.
type ContentListOptions struct {
	Search string
	// PublishedOnly restricts results to published rows.
	PublishedOnly bool
	CategoryID    *int64
	Limit         int
	Offset        int
}

// UpsertArticle inserts the article, or updates it when the slug already
// exists. Returns the stored row.
func (d *Database) UpsertArticle(ctx context.Context, a *Article) (*Article, error) {
	done := observeQuery("upsert_article")

	if a.Slug == "" || a.Title == "" {
		err := errors.New("article slug and title are required")
		done(err)
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO articles (slug, title, excerpt, body, media_id, category_id, published)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			excerpt = excluded.excerpt,
			body = excluded.body,
			media_id = excluded.media_id,
			category_id = excluded.category_id,
			published = excluded.published,
			updated_at = strftime('%s', 'now')`,
		a.Slug, a.Title, nullable(a.Excerpt), nullable(a.Body), a.MediaID, a.CategoryID, boolToInt(a.Published),
	)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to upsert article: %w", err)
	}

	stored, err := d.getArticleBySlugLocked(ctx, a.Slug)
	done(err)
	return stored, err
}

// GetArticleBySlug returns the article or nil when no row matches.
func (d *Database) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	done := observeQuery("get_article_by_slug")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	article, err := d.getArticleBySlugLocked(ctx, slug)
	done(err)
	return article, err
}

func (d *Database) getArticleBySlugLocked(ctx context.Context, slug string) (*Article, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, slug, title, excerpt, body, media_id, category_id, published, created_at, updated_at
		FROM articles WHERE slug = ?`, slug)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := d.tagsForArticleLocked(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	article.Tags = tags
	return article, nil
}

// GetArticles lists articles newest first.
func (d *Database) GetArticles(ctx context.Context, opts ContentListOptions) ([]Article, error) {
	done := observeQuery("get_articles")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where, args := contentFilter(opts, "title")
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)

	query := fmt.Sprintf(`
		SELECT id, slug, title, excerpt, body, media_id, category_id, published, created_at, updated_at
		FROM articles %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, where)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		articles = append(articles, *article)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// DeleteArticle removes the article row; article_tags rows cascade.
func (d *Database) DeleteArticle(ctx context.Context, slug string) (bool, error) {
	done := observeQuery("delete_article")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM articles WHERE slug = ?", slug)
	if err != nil {
		done(err)
		return false, fmt.Errorf("failed to delete article: %w", err)
	}

	affected, err := result.RowsAffected()
	done(err)
	return affected > 0, err
}

// SetArticleTags replaces the tag set of an article, creating missing tags.
func (d *Database) SetArticleTags(ctx context.Context, articleID int64, tagNames []string) error {
	done := observeQuery("set_article_tags")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM article_tags WHERE article_id = ?", articleID); err != nil {
		done(err)
		return fmt.Errorf("failed to clear article tags: %w", err)
	}

	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var tagID int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ? COLLATE NOCASE", name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			result, insErr := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
			if insErr != nil {
				done(insErr)
				return fmt.Errorf("failed to create tag %q: %w", name, insErr)
			}
			tagID, _ = result.LastInsertId()
		} else if err != nil {
			done(err)
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)", articleID, tagID); err != nil {
			done(err)
			return fmt.Errorf("failed to attach tag %q: %w", name, err)
		}
	}

	err = tx.Commit()
	done(err)
	return err
}

func (d *Database) tagsForArticleLocked(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = ? ORDER BY t.name COLLATE NOCASE`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// GetAllTags returns every tag with its article count.
func (d *Database) GetAllTags(ctx context.Context) ([]Tag, error) {
	done := observeQuery("get_all_tags")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(at.id), t.created_at
		FROM tags t
		LEFT JOIN article_tags at ON at.tag_id = t.id
		GROUP BY t.id ORDER BY t.name COLLATE NOCASE`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var createdAt int64
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.ItemCount, &createdAt); err != nil {
			done(err)
			return nil, err
		}
		tag.CreatedAt = time.Unix(createdAt, 0)
		tags = append(tags, tag)
	}

	err = rows.Err()
	done(err)
	return tags, err
}

// UpsertRecipe inserts the recipe, or updates it when the slug already
// exists. Returns the stored row.
func (d *Database) UpsertRecipe(ctx context.Context, r *Recipe) (*Recipe, error) {
	done := observeQuery("upsert_recipe")

	if r.Slug == "" || r.Title == "" {
		err := errors.New("recipe slug and title are required")
		done(err)
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO recipes (slug, title, description, ingredients_json, steps_json,
			prep_minutes, cook_minutes, servings, media_id, category_id, published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			ingredients_json = excluded.ingredients_json,
			steps_json = excluded.steps_json,
			prep_minutes = excluded.prep_minutes,
			cook_minutes = excluded.cook_minutes,
			servings = excluded.servings,
			media_id = excluded.media_id,
			category_id = excluded.category_id,
			published = excluded.published,
			updated_at = strftime('%s', 'now')`,
		r.Slug, r.Title, nullable(r.Description), rawJSON(r.Ingredients), rawJSON(r.Steps),
		r.PrepMinutes, r.CookMinutes, r.Servings, r.MediaID, r.CategoryID, boolToInt(r.Published),
	)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to upsert recipe: %w", err)
	}

	stored, err := d.getRecipeBySlugLocked(ctx, r.Slug)
	done(err)
	return stored, err
}

// GetRecipeBySlug returns the recipe or nil when no row matches.
func (d *Database) GetRecipeBySlug(ctx context.Context, slug string) (*Recipe, error) {
	done := observeQuery("get_recipe_by_slug")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	recipe, err := d.getRecipeBySlugLocked(ctx, slug)
	done(err)
	return recipe, err
}

func (d *Database) getRecipeBySlugLocked(ctx context.Context, slug string) (*Recipe, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, slug, title, description, ingredients_json, steps_json,
		       prep_minutes, cook_minutes, servings, media_id, category_id, published, created_at, updated_at
		FROM recipes WHERE slug = ?`, slug)

	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return recipe, err
}

// GetRecipes lists recipes newest first.
func (d *Database) GetRecipes(ctx context.Context, opts ContentListOptions) ([]Recipe, error) {
	done := observeQuery("get_recipes")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where, args := contentFilter(opts, "title")
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)

	query := fmt.Sprintf(`
		SELECT id, slug, title, description, ingredients_json, steps_json,
		       prep_minutes, cook_minutes, servings, media_id, category_id, published, created_at, updated_at
		FROM recipes %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, where)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		recipes = append(recipes, *recipe)
	}

	err = rows.Err()
	done(err)
	return recipes, err
}

// DeleteRecipe removes the recipe row.
func (d *Database) DeleteRecipe(ctx context.Context, slug string) (bool, error) {
	done := observeQuery("delete_recipe")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM recipes WHERE slug = ?", slug)
	if err != nil {
		done(err)
		return false, fmt.Errorf("failed to delete recipe: %w", err)
	}

	affected, err := result.RowsAffected()
	done(err)
	return affected > 0, err
}

// GetOrCreateCategory gets an existing category by slug or creates it.
func (d *Database) GetOrCreateCategory(ctx context.Context, slug, name string) (*Category, error) {
	done := observeQuery("get_or_create_category")

	slug = strings.TrimSpace(slug)
	if slug == "" {
		err := errors.New("category slug cannot be empty")
		done(err)
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var cat Category
	err := d.db.QueryRowContext(ctx,
		"SELECT id, slug, name FROM categories WHERE slug = ?", slug,
	).Scan(&cat.ID, &cat.Slug, &cat.Name)
	if err == nil {
		done(nil)
		return &cat, nil
	}

	result, err := d.db.ExecContext(ctx, "INSERT INTO categories (slug, name) VALUES (?, ?)", slug, name)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	cat.ID, _ = result.LastInsertId()
	cat.Slug = slug
	cat.Name = name
	done(nil)
	return &cat, nil
}

// GetCategories returns all categories ordered by name.
func (d *Database) GetCategories(ctx context.Context) ([]Category, error) {
	done := observeQuery("get_categories")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, slug, name FROM categories ORDER BY name COLLATE NOCASE")
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Slug, &cat.Name); err != nil {
			done(err)
			return nil, err
		}
		categories = append(categories, cat)
	}

	err = rows.Err()
	done(err)
	return categories, err
}

// DeleteCategory removes a category; referencing rows keep a NULL category.
func (d *Database) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	done := observeQuery("delete_category")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		done(err)
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	done(err)
	return affected > 0, err
}

func contentFilter(opts ContentListOptions, searchCol string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if opts.PublishedOnly {
		conditions = append(conditions, "published = 1")
	}
	if opts.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *opts.CategoryID)
	}
	if opts.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, searchCol))
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanArticle(s scanner) (*Article, error) {
	var a Article
	var excerpt, body sql.NullString
	var mediaID, categoryID sql.NullInt64
	var published int
	var createdAt, updatedAt int64

	err := s.Scan(&a.ID, &a.Slug, &a.Title, &excerpt, &body, &mediaID, &categoryID,
		&published, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Excerpt = excerpt.String
	a.Body = body.String
	if mediaID.Valid {
		a.MediaID = &mediaID.Int64
	}
	if categoryID.Valid {
		a.CategoryID = &categoryID.Int64
	}
	a.Published = published != 0
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}

func scanRecipe(s scanner) (*Recipe, error) {
	var r Recipe
	var description, ingredients, steps sql.NullString
	var mediaID, categoryID sql.NullInt64
	var published int
	var createdAt, updatedAt int64

	err := s.Scan(&r.ID, &r.Slug, &r.Title, &description, &ingredients, &steps,
		&r.PrepMinutes, &r.CookMinutes, &r.Servings, &mediaID, &categoryID,
		&published, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	if ingredients.Valid {
		r.Ingredients = json.RawMessage(ingredients.String)
	}
	if steps.Valid {
		r.Steps = json.RawMessage(steps.String)
	}
	if mediaID.Valid {
		r.MediaID = &mediaID.Int64
	}
	if categoryID.Valid {
		r.CategoryID = &categoryID.Int64
	}
	r.Published = published != 0
	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rawJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
