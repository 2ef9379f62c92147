// Package pagination implements keyset (seek-based) pagination over any
// collection ordered by a composite key (primary column, unique id). The id
// is a total tiebreak, so the order is strict even when the primary column
// has duplicates. Cursors point at the row adjacent to the page edge; there
// are no offsets, so pages stay stable while the underlying set changes.
package pagination

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Direction int

const (
	// DirectionNext pages forward from the cursor (or from the start when
	// the cursor is nil).
	DirectionNext Direction = iota
	// DirectionPrev pages backward from the cursor.
	DirectionPrev
)

var (
	ErrInvalidCursor   = errors.New("invalid pagination cursor")
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Cursor is the composite key of the item adjacent to the requested page
// edge. Primary is the string form of the primary order column (a timestamp
// or an indexed name); the source knows how to interpret it.
type Cursor struct {
	Primary string
	ID      int
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(c.ID) + "|" + c.Primary))
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	idStr, primary, found := strings.Cut(string(raw), "|")
	if !found {
		return Cursor{}, ErrInvalidCursor
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return Cursor{Primary: primary, ID: id}, nil
}

// Source produces ordered rows for one paginated collection. Implementations
// live next to the SQL that filters and joins the rows; the algorithm here is
// shared by all of them.
type Source[T any] interface {
	// FetchAfter returns up to limit items whose key is strictly greater
	// than the cursor, in ascending key order. A nil cursor starts from the
	// beginning.
	FetchAfter(ctx context.Context, after *Cursor, limit int) ([]T, error)

	// FetchBefore returns up to limit items whose key is strictly less than
	// the cursor, in descending key order (the paginator restores ascending
	// order).
	FetchBefore(ctx context.Context, before Cursor, limit int) ([]T, error)

	// Bounds returns the ids of the globally first and last items of the
	// collection. ok is false when the collection is empty. It backs the
	// dead-end check: a next/prev cursor is only emitted when there really
	// is something beyond the page.
	Bounds(ctx context.Context) (firstID, lastID int, ok bool, err error)

	// Key extracts the composite key of an item.
	Key(item T) Cursor
}

// Page is one window of a paginated collection. Items are always in
// ascending key order regardless of the navigation direction. Next and Prev
// are nil at the respective ends of the collection.
type Page[T any] struct {
	Items []T
	Next  *Cursor
	Prev  *Cursor
}

// Paginate fetches one page from src. With a nil cursor it returns the first
// page; otherwise it seeks forward or backward from the cursor according to
// dir.
func Paginate[T any](ctx context.Context, src Source[T], cursor *Cursor, dir Direction, pageSize int) (Page[T], error) {
	if pageSize <= 0 {
		return Page[T]{}, ErrInvalidPageSize
	}

	var (
		items []T
		err   error
	)
	if dir == DirectionPrev && cursor != nil {
		items, err = src.FetchBefore(ctx, *cursor, pageSize)
		if err != nil {
			return Page[T]{}, fmt.Errorf("failed to fetch page before cursor: %w", err)
		}
		reverse(items)
	} else {
		items, err = src.FetchAfter(ctx, cursor, pageSize)
		if err != nil {
			return Page[T]{}, fmt.Errorf("failed to fetch page after cursor: %w", err)
		}
	}

	page := Page[T]{Items: items}
	if len(items) == 0 {
		return page, nil
	}

	firstID, lastID, ok, err := src.Bounds(ctx)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to fetch collection bounds: %w", err)
	}
	if !ok {
		// The collection emptied between the two queries; the page we read
		// is all there is.
		return page, nil
	}

	// A non-full page necessarily touches the boundary on the side it was
	// fetched towards, so comparing edge ids against the global bounds
	// covers the fullness rule as well.
	if last := src.Key(items[len(items)-1]); last.ID != lastID {
		page.Next = &last
	}
	if first := src.Key(items[0]); first.ID != firstID {
		page.Prev = &first
	}

	return page, nil
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
