// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Page bounds a listing. Items are ordered newest first.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	q = q.Order("created_at DESC").Order("id DESC")
	if p.Skip > 0 {
		q = q.Offset(p.Skip)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

// Migrate creates or updates every table used by the service.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Topic{},
		&model.Discussion{},
		&model.Post{},
		&model.Invitation{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a unique index.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps storage errors onto domain errors. conflict is returned for
// unique violations and notFound for missing rows; either may be nil.
func translate(err error, op string, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case conflict != nil && isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, conflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// forUpdate locks the selected rows on dialects that support it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// memberPattern matches an id inside an IDList column.
func memberPattern(id fmt.Stringer) string {
	return "%" + id.String() + "%"
}
