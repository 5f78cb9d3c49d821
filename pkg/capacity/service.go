package capacity

import (
	"database/sql"
)

// PostgresService stores teams, capacity plans and rating configs in PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}
