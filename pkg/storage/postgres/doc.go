// Package postgres provides the PostgreSQL and Redis plumbing shared by the
// domain stores: pool construction, schema migrations, a transaction helper
// and classification of driver errors.
//
// Stores receive a *sql.DB and use Querier so the same query code can run on
// the pool or inside WithTx. Unique violations (SQLSTATE 23505) are detected
// with IsUniqueViolation and mapped by the caller to a duplicate or conflict
// error.
//
// Integration tests use SetupPostgresContainer, which is only compiled with
// the integration build tag:
//
//	go test -tags integration ./pkg/storage/postgres/...
package postgres
