package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrRecordNotFound is returned when a lookup by id or token matches nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict is returned when the row changed between read and write.
	ErrEditConflict = errors.New("edit conflict")
	// ErrDuplicateEntry is returned when another entry already holds the same
	// name (case-insensitive) and release date.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// queryTimeout bounds every statement issued by the models.
const queryTimeout = 3 * time.Second

// Models is a container for all the database models.
type Models struct {
	Entries interface {
		Insert(entry *CatalogEntry) error
		Get(id uuid.UUID) (*CatalogEntry, error)
		FindDuplicate(name string, releaseDate Date, excludeID uuid.UUID) (*CatalogEntry, error)
		Search(filters Filters) ([]*CatalogEntry, error)
		Update(entry *CatalogEntry) error
		Delete(id uuid.UUID) (string, error)
	}
	APIKeys interface {
		Insert(name string, role Role) (*APIKey, string, error)
		GetCaller(token string) (*Caller, error)
		Delete(id uuid.UUID) error
	}
}

// NewModels returns Models backed by db. The hasher tags every inserted entry.
func NewModels(db *sql.DB, hasher *idhash.Hasher) Models {
	return Models{
		Entries: EntryModel{DB: db, Hasher: hasher},
		APIKeys: APIKeyModel{DB: db, Cost: defaultKeyCost},
	}
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
