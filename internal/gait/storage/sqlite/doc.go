// Package sqlite contains SQLite repository implementations for gait
// domain types.
//
// All database reads and writes for analysis jobs belong here rather than
// in the processing layers (l1-l6), which stay free of SQL. The schema is
// owned by the migrations in internal/db.
package sqlite
