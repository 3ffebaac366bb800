package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/hafizmfadli/go-catalog/internal/validator"
)

// CatalogEntry is a single movie or series in the catalog.
type CatalogEntry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"-"`
	Name      *string   `json:"name"`
	About     *string   `json:"about"`
	// PosterURL is only ever set from an upload result, never from caller input.
	PosterURL *string `json:"posterUrl"`
	Link      *string `json:"link"`
	// Season applies to series only.
	Season   *Season `json:"season"`
	Format   *string `json:"format"`
	Industry *string `json:"industry"`
	// ReleaseDate together with the lower-cased name is unique.
	ReleaseDate *Date    `json:"releaseDate"`
	Genres      Genres   `json:"genre"`
	Rating      *float64 `json:"rating"`
	UploadedBy  *string  `json:"uploadedBy"`
	Collection  *string  `json:"collection"`
	Watched     bool     `json:"watched"`
	// WatchedAt is non-nil exactly when Watched is true.
	WatchedAt *time.Time `json:"watchedAt"`
	HashedID  string     `json:"-"`
	// Version starts at 1 and is incremented on every update.
	Version int32 `json:"-"`
}

// DisplayName returns the entry name, or an empty string for unnamed entries.
func (e *CatalogEntry) DisplayName() string {
	if e.Name == nil {
		return ""
	}
	return *e.Name
}

// ToggleWatched flips the watched flag and keeps WatchedAt paired with it.
func (e *CatalogEntry) ToggleWatched(now time.Time) {
	e.Watched = !e.Watched
	if e.Watched {
		t := now.UTC()
		e.WatchedAt = &t
	} else {
		e.WatchedAt = nil
	}
}

// EntryUpdate is a partial update. A nil field is left untouched. The watched
// pair and the poster URL have no fields here: the poster URL is only set
// from an upload result.
type EntryUpdate struct {
	Name        *string  `json:"name"`
	About       *string  `json:"about"`
	Poster      *string  `json:"poster"`
	Link        *string  `json:"link"`
	Season      *Season  `json:"season"`
	Format      *string  `json:"format"`
	Industry    *string  `json:"industry"`
	ReleaseDate *Date    `json:"releaseDate"`
	Genres      *Genres  `json:"genre"`
	Rating      *float64 `json:"rating"`
	UploadedBy  *string  `json:"uploadedBy"`
	Collection  *string  `json:"collection"`
}

// Apply copies every non-nil field except Poster onto entry.
func (u EntryUpdate) Apply(entry *CatalogEntry) {
	if u.Name != nil {
		entry.Name = u.Name
	}
	if u.About != nil {
		entry.About = u.About
	}
	if u.Link != nil {
		entry.Link = u.Link
	}
	if u.Season != nil {
		entry.Season = u.Season
	}
	if u.Format != nil {
		entry.Format = u.Format
	}
	if u.Industry != nil {
		entry.Industry = u.Industry
	}
	if u.ReleaseDate != nil {
		entry.ReleaseDate = u.ReleaseDate
	}
	if u.Genres != nil {
		entry.Genres = *u.Genres
	}
	if u.Rating != nil {
		entry.Rating = u.Rating
	}
	if u.UploadedBy != nil {
		entry.UploadedBy = u.UploadedBy
	}
	if u.Collection != nil {
		entry.Collection = u.Collection
	}
}

// ValidateEntry checks the caller supplied fields of entry.
func ValidateEntry(v *validator.Validator, entry *CatalogEntry) {
	checkText(v, "name", entry.Name, 500)
	checkText(v, "about", entry.About, 5000)
	checkText(v, "format", entry.Format, 100)
	checkText(v, "industry", entry.Industry, 100)
	checkText(v, "uploadedBy", entry.UploadedBy, 200)
	checkText(v, "collection", entry.Collection, 200)

	if entry.Link != nil {
		v.Check(validator.IsWebURL(*entry.Link), "link", "must be an absolute http or https URL")
	}

	if entry.Season != nil {
		v.Check(validator.NotBlank(string(*entry.Season)), "season", "must not be blank")
		v.Check(validator.MaxBytes(string(*entry.Season), 50), "season", "must not be more than 50 bytes long")
	}

	if entry.ReleaseDate != nil {
		v.Check(entry.ReleaseDate.Year() >= 1888, "releaseDate", "must be greater than 1888")
	}

	if entry.Rating != nil {
		v.Check(*entry.Rating >= 0 && *entry.Rating <= 10, "rating", "must be between 0 and 10")
	}

	v.Check(len(entry.Genres) <= 10, "genre", "must not contain more than 10 genres")
	v.Check(validator.Unique(entry.Genres), "genre", "must not contain duplicate values")
	for _, g := range entry.Genres {
		v.Check(validator.NotBlank(g), "genre", "must not contain blank values")
	}
}

// ValidatePoster checks the image input passed to the upload collaborator.
func ValidatePoster(v *validator.Validator, poster *string) {
	if poster != nil {
		v.Check(validator.NotBlank(*poster), "poster", "must not be blank")
	}
}

func checkText(v *validator.Validator, key string, value *string, max int) {
	if value == nil {
		return
	}
	v.Check(validator.NotBlank(*value), key, "must not be blank")
	v.Check(validator.MaxBytes(*value, max), key, fmt.Sprintf("must not be more than %d bytes long", max))
}

// nameKey is the case-folded form of a name used for uniqueness and search.
// SQL lower() is not used: SQLite folds ASCII only.
func nameKey(name string) string {
	return strings.ToLower(name)
}

func nameKeyOf(name *string) *string {
	if name == nil {
		return nil
	}
	key := nameKey(*name)
	return &key
}

// EntryModel wraps a connection pool holding the entries table.
//
// Placeholders must first appear in ascending order within a statement:
// SQLite numbers $N parameters by first appearance.
type EntryModel struct {
	DB     *sql.DB
	Hasher *idhash.Hasher
}

const entryColumns = `id, created_at, name, about, poster_url, link, season, format, industry,
	release_date, genres, rating, uploaded_by, collection, watched, watched_at, hashed_id, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*CatalogEntry, error) {
	var entry CatalogEntry
	err := row.Scan(
		&entry.ID,
		&entry.CreatedAt,
		&entry.Name,
		&entry.About,
		&entry.PosterURL,
		&entry.Link,
		&entry.Season,
		&entry.Format,
		&entry.Industry,
		&entry.ReleaseDate,
		&entry.Genres,
		&entry.Rating,
		&entry.UploadedBy,
		&entry.Collection,
		&entry.Watched,
		&entry.WatchedAt,
		&entry.HashedID,
		&entry.Version,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Insert stores a new entry. ID, CreatedAt, HashedID and Version are set on
// entry; the watched pair always starts cleared.
func (m EntryModel) Insert(entry *CatalogEntry) error {
	entry.ID = uuid.New()

	hashed, err := m.Hasher.Hash(entry.ID.String())
	if err != nil {
		return err
	}

	entry.CreatedAt = time.Now().UTC().Truncate(time.Second)
	entry.HashedID = hashed
	entry.Watched = false
	entry.WatchedAt = nil
	entry.Version = 1
	if entry.Genres == nil {
		entry.Genres = Genres{}
	}

	query := `
		INSERT INTO entries (id, created_at, name, name_key, about, poster_url, link, season, format, industry,
			release_date, genres, rating, uploaded_by, collection, watched, watched_at, hashed_id, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	args := []any{
		entry.ID,
		entry.CreatedAt,
		entry.Name,
		nameKeyOf(entry.Name),
		entry.About,
		entry.PosterURL,
		entry.Link,
		entry.Season,
		entry.Format,
		entry.Industry,
		entry.ReleaseDate,
		entry.Genres,
		entry.Rating,
		entry.UploadedBy,
		entry.Collection,
		entry.Watched,
		entry.WatchedAt,
		entry.HashedID,
		entry.Version,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		return err
	}

	return nil
}

// Get returns the entry with the given id.
func (m EntryModel) Get(id uuid.UUID) (*CatalogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	entry, err := scanEntry(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return entry, nil
}

// FindDuplicate returns an entry other than excludeID whose name equals name
// ignoring Unicode case and whose release date is releaseDate. Pass uuid.Nil to
// exclude nothing.
func (m EntryModel) FindDuplicate(name string, releaseDate Date, excludeID uuid.UUID) (*CatalogEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE name_key = $1 AND release_date = $2 AND id <> $3
		LIMIT 1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	entry, err := scanEntry(m.DB.QueryRowContext(ctx, query, nameKey(name), releaseDate, excludeID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return entry, nil
}

// Search returns entries whose name contains filters.Search, newest release
// first. Entries without a release date sort last.
func (m EntryModel) Search(filters Filters) ([]*CatalogEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE ($1 = '' OR name_key LIKE $2 ESCAPE '\')
		ORDER BY release_date DESC NULLS LAST, created_at DESC, id ASC`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, filters.Search, filters.searchPattern())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*CatalogEntry{}

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Update writes every mutable column of entry. It fails with ErrEditConflict
// if the stored version no longer matches entry.Version, and increments
// entry.Version on success.
func (m EntryModel) Update(entry *CatalogEntry) error {
	query := `
		UPDATE entries
		SET name = $1, name_key = $2, about = $3, poster_url = $4, link = $5, season = $6, format = $7,
			industry = $8, release_date = $9, genres = $10, rating = $11, uploaded_by = $12,
			collection = $13, watched = $14, watched_at = $15, version = version + 1
		WHERE id = $16 AND version = $17`

	args := []any{
		entry.Name,
		nameKeyOf(entry.Name),
		entry.About,
		entry.PosterURL,
		entry.Link,
		entry.Season,
		entry.Format,
		entry.Industry,
		entry.ReleaseDate,
		entry.Genres,
		entry.Rating,
		entry.UploadedBy,
		entry.Collection,
		entry.Watched,
		entry.WatchedAt,
		entry.ID,
		entry.Version,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEditConflict
	}

	entry.Version++
	return nil
}

// Delete removes the entry and returns its name.
func (m EntryModel) Delete(id uuid.UUID) (string, error) {
	query := `DELETE FROM entries WHERE id = $1 RETURNING name`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var name sql.NullString
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&name)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", ErrRecordNotFound
		default:
			return "", err
		}
	}

	return name.String, nil
}
