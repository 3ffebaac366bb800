package data

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

// Role is the capability level attached to an API key.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleDeveloper, RoleAdmin}

const defaultKeyCost = bcrypt.DefaultCost

// APIKey is a stored credential. The secret half of the token is only ever
// held as a bcrypt hash.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	hash      []byte
}

// Caller is the principal behind a request.
type Caller struct {
	KeyID uuid.UUID
	Name  string
	Role  Role
}

// AnonymousCaller represents a request without credentials.
var AnonymousCaller = &Caller{}

// IsAnonymous reports whether c is the AnonymousCaller.
func (c *Caller) IsAnonymous() bool {
	return c == AnonymousCaller
}

// ValidateAPIKey checks the name and role of a new key.
func ValidateAPIKey(v *validator.Validator, name string, role Role) {
	v.Check(validator.NotBlank(name), "name", "must be provided")
	v.Check(validator.MaxBytes(name, 200), "name", "must not be more than 200 bytes long")

	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	v.Check(validator.In(string(role), names...), "role", "must be one of "+strings.Join(names, ", "))
}

// APIKeyModel wraps a connection pool holding the api_keys table.
type APIKeyModel struct {
	DB *sql.DB
	// Cost is the bcrypt cost used for new keys.
	Cost int
}

// generateSecret returns 26 characters of base32 drawn from 16 random bytes.
func generateSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b), nil
}

// Insert creates a key and returns it together with the plaintext bearer
// token "<id>.<secret>". The token can't be recovered later.
func (m APIKeyModel) Insert(name string, role Role) (*APIKey, string, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, "", err
	}

	cost := m.Cost
	if cost == 0 {
		cost = defaultKeyCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, "", err
	}

	key := &APIKey{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Name:      name,
		Role:      role,
		hash:      hash,
	}

	query := `
		INSERT INTO api_keys (id, created_at, name, role, secret_hash)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = m.DB.ExecContext(ctx, query, key.ID, key.CreatedAt, key.Name, string(key.Role), key.hash)
	if err != nil {
		return nil, "", err
	}

	return key, key.ID.String() + "." + secret, nil
}

// GetCaller resolves a bearer token to its caller. Unknown ids, malformed
// tokens and wrong secrets all yield ErrRecordNotFound.
func (m APIKeyModel) GetCaller(token string) (*Caller, error) {
	rawID, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, ErrRecordNotFound
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	query := `SELECT name, role, secret_hash FROM api_keys WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		name string
		role string
		hash []byte
	)

	err = m.DB.QueryRowContext(ctx, query, id).Scan(&name, &role, &hash)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &Caller{KeyID: id, Name: name, Role: Role(role)}, nil
}

// Delete revokes a key.
func (m APIKeyModel) Delete(id uuid.UUID) error {
	query := `DELETE FROM api_keys WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
