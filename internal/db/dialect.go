package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// LockForUpdate adds a FOR UPDATE clause on dialects that support row
// locks. SQLite rejects the syntax and serializes writers through its
// database-level write lock instead.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if IsSQLite(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CaseInsensitiveLikeExpr returns a SQL expression for case-insensitive LIKE.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) LIKE ?", column)
	}
	return fmt.Sprintf("%s ILIKE ?", column)
}

// NormalizeLikePattern normalizes a LIKE pattern for the current dialect.
func NormalizeLikePattern(conn *gorm.DB, pattern string) string {
	if IsSQLite(conn) {
		return strings.ToLower(pattern)
	}
	return pattern
}
