package handlers

import (
	"time"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/config"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/database"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/storage"
)

type Handlers struct {
	db      *database.Database
	store   storage.ObjectStore
	props   *config.Properties
	started time.Time
}

func New(db *database.Database, store storage.ObjectStore, props *config.Properties) *Handlers {
	return &Handlers{
		db:      db,
		store:   store,
		props:   props,
		started: time.Now(),
	}
}
