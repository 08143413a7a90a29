// Package pagination implements newest-first keyset pages over tables keyed
// by (created_at, id).
package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is a page request. Cursor is the opaque token from the previous
// page, empty for the first one.
type Params struct {
	Limit  int
	Cursor string
}

// Size is Limit clamped to [1, MaxLimit], DefaultLimit when unset.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// Cursor points at the last row of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// String encodes the cursor as a URL-safe token.
func (c Cursor) String() string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 36) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Cursor.String. An empty token yields a
// nil cursor.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalidCursor()
	}
	stamp, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, invalidCursor()
	}
	nanos, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil {
		return nil, invalidCursor()
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidCursor()
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: parsed}, nil
}

func invalidCursor() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor").WithDetails(map[string]string{"cursor": "malformed"})
}

// Newest orders query newest first, resumes after the cursor in p and
// fetches one row past the page so Trim can tell whether more exist.
func Newest(query *gorm.DB, p Params) (*gorm.DB, error) {
	after, err := Decode(p.Cursor)
	if err != nil {
		return nil, err
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(p.Size() + 1)
	if after != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	return query, nil
}

// Trim cuts rows fetched by Newest down to the page and returns the token
// for the next page, empty on the last one.
func Trim[T any](rows []T, p Params, key func(T) Cursor) ([]T, string) {
	size := p.Size()
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, key(rows[size-1]).String()
}
