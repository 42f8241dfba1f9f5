package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistence for the content service.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates a new Database instance.
// dbPath must be the full path to the database FILE (e.g., "/database/freecipies.db"),
// and the parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := checkParentDir(dbPath); err != nil {
		return nil, err
	}

	// WAL mode plus busy_timeout to prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func checkParentDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("database directory %s not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("database parent %s is not a directory", dir)
	}
	return nil
}

func (d *Database) initialize(ctx context.Context) error {
	done := observeQuery("initialize_schema")

	schema := `
	-- Media assets: one row per logical image, variants serialized as JSON
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		alt_text TEXT NOT NULL,
		caption TEXT,
		credit TEXT,
		mime_type TEXT,
		aspect_ratio TEXT,
		variants_json TEXT NOT NULL,
		focal_point_json TEXT NOT NULL DEFAULT '{"x":50,"y":50}',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at);
	CREATE INDEX IF NOT EXISTS idx_media_name ON media(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_media_mime_type ON media(mime_type);

	-- Categories
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	-- Articles
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		excerpt TEXT,
		body TEXT,
		media_id INTEGER REFERENCES media(id) ON DELETE SET NULL,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		published INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published);
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id);

	-- Recipes
	CREATE TABLE IF NOT EXISTS recipes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		ingredients_json TEXT,
		steps_json TEXT,
		prep_minutes INTEGER NOT NULL DEFAULT 0,
		cook_minutes INTEGER NOT NULL DEFAULT 0,
		servings INTEGER NOT NULL DEFAULT 0,
		media_id INTEGER REFERENCES media(id) ON DELETE SET NULL,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		published INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_published ON recipes(published);
	CREATE INDEX IF NOT EXISTS idx_recipes_category ON recipes(category_id);

	-- Tags and article-tag relationships
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS article_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(article_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_article_tags_article ON article_tags(article_id);
	CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id);
	`

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, schema)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Foreign keys are off by default in SQLite
	if _, err := d.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// observeQuery records query metrics. Call the returned func with the query's
// final error.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
