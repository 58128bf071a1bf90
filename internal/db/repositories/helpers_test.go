package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// errDB stands in for an arbitrary driver failure.
var errDB = errors.New("db error")

// pqUniqueViolation fabricates the Postgres duplicate-key error the
// repositories translate into domain conflicts.
func pqUniqueViolation() error {
	return &pq.Error{Code: "23505"}
}
