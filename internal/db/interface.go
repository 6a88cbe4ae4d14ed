package db

import "database/sql"

// Database abstracts the concrete sqlite handle so tests can substitute a
// throwaway instance.
type Database interface {
	Conn() *sql.DB
	Close() error
	Migrate() error
}
