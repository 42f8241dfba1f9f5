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

// MediaListOptions controls filtering, sorting and pagination for GetMedia.
type MediaListOptions struct {
	// Filter matches the mime_type prefix, e.g. "image" or "image/webp".
	Filter string
	// Search matches name OR alt_text by case-insensitive substring.
	Search string
	// SortBy is "createdAt" (default) or "name".
	SortBy string
	// Order is "asc" or "desc" (default).
	Order string
	// Limit caps the result set; 0 means the default of 50.
	Limit  int
	Offset int
}

// InsertMediaParams carries everything needed to materialize a media row.
type InsertMediaParams struct {
	Name        string
	AltText     string
	Caption     string
	Credit      string
	MimeType    string
	AspectRatio string
	Variants    *VariantsDocument
	FocalPoint  FocalPoint
}

// UpdateMediaParams carries metadata mutations; nil fields are left untouched.
type UpdateMediaParams struct {
	Name        *string
	AltText     *string
	Caption     *string
	Credit      *string
	AspectRatio *string
	FocalPoint  *FocalPoint
}

// InsertMedia inserts one media row and returns the stored record.
func (d *Database) InsertMedia(ctx context.Context, params InsertMediaParams) (*MediaRecord, error) {
	done := observeQuery("insert_media")

	if params.Variants == nil {
		err := errors.New("variants document is required")
		done(err)
		return nil, err
	}

	variantsJSON, err := params.Variants.Encode()
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to encode variants: %w", err)
	}

	focalJSON, err := json.Marshal(params.FocalPoint)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to encode focal point: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO media (name, alt_text, caption, credit, mime_type, aspect_ratio, variants_json, focal_point_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Name, params.AltText, nullable(params.Caption), nullable(params.Credit),
		nullable(params.MimeType), nullable(params.AspectRatio), variantsJSON, string(focalJSON),
	)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to insert media: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to read inserted media id: %w", err)
	}

	record, err := d.getMediaByIDLocked(ctx, id)
	done(err)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("inserted media row not found")
	}
	return record, nil
}

// GetMedia returns media records matching the options. Records carry their
// resolved primary URL.
func (d *Database) GetMedia(ctx context.Context, opts MediaListOptions) ([]MediaRecord, error) {
	done := observeQuery("get_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var conditions []string
	var args []interface{}

	if opts.Filter != "" {
		conditions = append(conditions, "mime_type LIKE ?")
		args = append(args, opts.Filter+"%")
	}
	if opts.Search != "" {
		// SQLite LIKE is case-insensitive for ASCII by default
		conditions = append(conditions, `(name LIKE ? ESCAPE '\' OR alt_text LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(opts.Search) + "%"
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	sortCol := "created_at"
	if opts.SortBy == "name" {
		sortCol = "name COLLATE NOCASE"
	}
	order := "DESC"
	if strings.EqualFold(opts.Order, "asc") {
		order = "ASC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, name, alt_text, caption, credit, mime_type, aspect_ratio,
		       variants_json, focal_point_json, created_at, updated_at
		FROM media %s ORDER BY %s %s LIMIT ? OFFSET ?`, where, sortCol, order)
	args = append(args, limit, opts.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		record, err := scanMedia(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		records = append(records, *record)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate media rows: %w", err)
	}
	return records, nil
}

// GetMediaByID returns the media record or nil when no row matches.
func (d *Database) GetMediaByID(ctx context.Context, id int64) (*MediaRecord, error) {
	done := observeQuery("get_media_by_id")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	record, err := d.getMediaByIDLocked(ctx, id)
	done(err)
	return record, err
}

func (d *Database) getMediaByIDLocked(ctx context.Context, id int64) (*MediaRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, alt_text, caption, credit, mime_type, aspect_ratio,
		       variants_json, focal_point_json, created_at, updated_at
		FROM media WHERE id = ?`, id)

	record, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateMedia applies metadata mutations to a media row and returns the
// updated record, or nil when no row matches.
func (d *Database) UpdateMedia(ctx context.Context, id int64, params UpdateMediaParams) (*MediaRecord, error) {
	done := observeQuery("update_media")

	var sets []string
	var args []interface{}

	if params.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *params.Name)
	}
	if params.AltText != nil {
		sets = append(sets, "alt_text = ?")
		args = append(args, *params.AltText)
	}
	if params.Caption != nil {
		sets = append(sets, "caption = ?")
		args = append(args, nullable(*params.Caption))
	}
	if params.Credit != nil {
		sets = append(sets, "credit = ?")
		args = append(args, nullable(*params.Credit))
	}
	if params.AspectRatio != nil {
		sets = append(sets, "aspect_ratio = ?")
		args = append(args, nullable(*params.AspectRatio))
	}
	if params.FocalPoint != nil {
		focalJSON, err := json.Marshal(*params.FocalPoint)
		if err != nil {
			done(err)
			return nil, fmt.Errorf("failed to encode focal point: %w", err)
		}
		sets = append(sets, "focal_point_json = ?")
		args = append(args, string(focalJSON))
	}

	if len(sets) == 0 {
		done(nil)
		return d.GetMediaByID(ctx, id)
	}

	sets = append(sets, "updated_at = strftime('%s', 'now')")
	args = append(args, id)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := fmt.Sprintf("UPDATE media SET %s WHERE id = ?", strings.Join(sets, ", "))
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to update media: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		done(err)
		return nil, err
	}
	if affected == 0 {
		done(nil)
		return nil, nil
	}

	record, err := d.getMediaByIDLocked(ctx, id)
	done(err)
	return record, err
}

// DeleteMedia removes the media row. Object-store cleanup happens before
// this call; the row delete is unconditional.
func (d *Database) DeleteMedia(ctx context.Context, id int64) error {
	done := observeQuery("delete_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	return nil
}

// CountMedia returns the total number of media rows, used by the stats
// endpoint.
func (d *Database) CountMedia(ctx context.Context) (int64, error) {
	done := observeQuery("count_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&count)
	done(err)
	return count, err
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(s scanner) (*MediaRecord, error) {
	var record MediaRecord
	var caption, credit, mimeType, aspectRatio sql.NullString
	var variantsJSON, focalJSON string
	var createdAt, updatedAt int64

	err := s.Scan(&record.ID, &record.Name, &record.AltText, &caption, &credit,
		&mimeType, &aspectRatio, &variantsJSON, &focalJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.Caption = caption.String
	record.Credit = credit.String
	record.MimeType = mimeType.String
	record.AspectRatio = aspectRatio.String
	record.CreatedAt = time.Unix(createdAt, 0)
	record.UpdatedAt = time.Unix(updatedAt, 0)

	doc, err := ParseVariantsDocument(variantsJSON)
	if err != nil {
		return nil, fmt.Errorf("media %d: %w", record.ID, err)
	}
	record.Variants = doc

	record.FocalPoint = CenterFocalPoint()
	if focalJSON != "" {
		if err := json.Unmarshal([]byte(focalJSON), &record.FocalPoint); err != nil {
			return nil, fmt.Errorf("media %d: malformed focal point: %w", record.ID, err)
		}
	}

	record.URL = record.PrimaryURL()
	return &record, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
