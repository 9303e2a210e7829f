package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrReportNotFound is returned when no stored audit matches the query.
	ErrReportNotFound = errors.New("audit report not found")
)
