package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics flattens an error chain for logging. Postgres details are
// read from either the pgx or the lib/pq error type.
type Diagnostics struct {
	Message string
	Code    Code
	Reason  Reason
	Chain   []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGDetail     string
}

func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	d := Diagnostics{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Reason = typed.Reason()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail
	}
	return d
}

// Fields returns the non-empty diagnostics as log fields.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_chain": d.Chain,
	}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("error_code", string(d.Code))
	set("error_reason", string(d.Reason))
	set("pg_code", d.PGCode)
	set("pg_constraint", d.PGConstraint)
	set("pg_table", d.PGTable)
	set("pg_detail", d.PGDetail)
	return fields
}
