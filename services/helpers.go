package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// --- Общие хелперы ---

// runInTx executes fn inside a transaction. Rollback on error or panic,
// commit otherwise; every public mutating operation goes through here so no
// partial counter/relation mutation can survive.
func runInTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				if logger != nil {
					logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
				}
				err = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}

// indexName converts a display name into its lowercase index form used for
// ordering and lookups.
func indexName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// slugify builds the URL-friendly form of a display name: lowercase,
// alphanumerics kept, everything else collapsed into single dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetExtensionFromContentType maps an image content type to a file
// extension for stored avatar keys.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
