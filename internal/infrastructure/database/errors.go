package database

import "errors"

// ErrSchemaOutdated is returned by HealthCheck when migrations are embedded
// in the binary but not yet applied to the open database.
var ErrSchemaOutdated = errors.New("database: schema has pending migrations")
