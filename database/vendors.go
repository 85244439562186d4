package database

// SQL vendors the query builder knows placeholder formats for.
const (
	PostgreSQL = "postgresql"
	Oracle     = "oracle"
)
