// Package database manages SQLite persistence for the freecipies content
// service: media asset records with their variant documents, plus the
// article, recipe, category and tag tables.
//
// The schema is created on startup. All queries take a context and apply a
// per-call timeout. Media deletion is a hard delete; object-store cleanup is
// the caller's responsibility and happens before the row is removed.
package database
