// Package database owns the gateway's SQLite connection and schema.
//
// The thing registry is the only table consumer; it receives the raw
// *sql.DB embedded in DB. What this package adds on top of
// database/sql:
//
//   - Opening with the pragmas the gateway depends on (WAL, busy
//     timeout, foreign keys) and 0600 file permissions
//   - Forward-only schema migrations embedded in the binary
//   - A health check for the runtime monitor
//
// Typical startup:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations never roll back. Schema changes stay additive (nullable or
// defaulted columns, no drops or renames) so an old binary can still
// read a newer database.
package database
