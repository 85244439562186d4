package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/gaborage/tenantguard/multitenant"
)

const (
	tenantTable           = "sys_tenant"
	tenantKindColumn      = "tenant_type"
	tenantAncestorsColumn = "ancestors"
)

// RowQuerier runs a single-row query. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDirectory reads tenant kind and ancestors from the platform tenant table.
type SQLDirectory struct {
	db RowQuerier
	qb *QueryBuilder
}

var _ multitenant.Directory = (*SQLDirectory)(nil)

// NewSQLDirectory creates a directory over db using qb's placeholder format.
func NewSQLDirectory(db RowQuerier, qb *QueryBuilder) *SQLDirectory {
	return &SQLDirectory{db: db, qb: qb}
}

// Lookup implements multitenant.Directory. Ancestor paths are returned in ",a,b," form.
func (d *SQLDirectory) Lookup(ctx context.Context, tenantID int64) (multitenant.TenantInfo, error) {
	query, args, err := d.qb.Select(ctx, tenantTable, tenantKindColumn, tenantAncestorsColumn).
		Where(squirrel.Eq{d.qb.Filter().Column(): tenantID}).
		ToSql()
	if err != nil {
		return multitenant.TenantInfo{}, fmt.Errorf("build tenant lookup: %w", err)
	}

	var (
		kind      sql.NullInt64
		ancestors sql.NullString
	)
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&kind, &ancestors)
	if errors.Is(err, sql.ErrNoRows) {
		return multitenant.TenantInfo{}, fmt.Errorf("tenant %d: %w", tenantID, multitenant.ErrTenantNotFound)
	}
	if err != nil {
		return multitenant.TenantInfo{}, fmt.Errorf("lookup tenant %d: %w", tenantID, err)
	}

	return multitenant.TenantInfo{
		Kind:      int(kind.Int64),
		Ancestors: normalizeAncestors(ancestors.String),
	}, nil
}

// normalizeAncestors turns a stored "0,100,101" path into ",0,100,101," so membership
// checks can match ",<id>,". An empty path stays empty.
func normalizeAncestors(path string) string {
	path = strings.Trim(strings.TrimSpace(path), ",")
	if path == "" {
		return ""
	}
	return "," + path + ","
}
