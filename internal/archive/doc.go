// Package archive persists observed stage transitions to a local SQLite
// database. The archive is write-behind observability: the reconciliation
// cache never reads from it, and losing it loses nothing but history.
//
// One process owns the database at a time, enforced with a file lock next
// to it.
package archive
