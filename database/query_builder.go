// Package database scopes SQL statements to the caller's tenant and mirrors tenant
// identity into database sessions.
package database

import (
	"context"
	"sort"

	"github.com/Masterminds/squirrel"
)

// QueryBuilder builds squirrel statements with vendor placeholders and applies the
// TenantFilter's decision to each one.
type QueryBuilder struct {
	vendor           string
	statementBuilder squirrel.StatementBuilderType
	filter           *TenantFilter
}

// NewQueryBuilder creates a builder for vendor. A nil filter uses NewTenantFilter().
func NewQueryBuilder(vendor string, filter *TenantFilter) *QueryBuilder {
	var sb squirrel.StatementBuilderType

	switch vendor {
	case PostgreSQL:
		// PostgreSQL uses $1, $2, ... placeholders
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	case Oracle:
		// Oracle uses :1, :2, ... placeholders
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Colon)
	default:
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	}

	if filter == nil {
		filter = NewTenantFilter()
	}
	return &QueryBuilder{
		vendor:           vendor,
		statementBuilder: sb,
		filter:           filter,
	}
}

// Vendor returns the database vendor string.
func (qb *QueryBuilder) Vendor() string {
	return qb.vendor
}

// Filter returns the tenant filter applied by the builder.
func (qb *QueryBuilder) Filter() *TenantFilter {
	return qb.filter
}

// Select starts a SELECT from table restricted to the caller's tenant.
func (qb *QueryBuilder) Select(ctx context.Context, table string, columns ...string) squirrel.SelectBuilder {
	sb := qb.statementBuilder.Select(columns...).From(table)
	if pred, ok := qb.predicate(ctx, table, OpRead); ok {
		sb = sb.Where(pred)
	}
	return sb
}

// Update starts an UPDATE of table restricted to the caller's tenant.
func (qb *QueryBuilder) Update(ctx context.Context, table string) squirrel.UpdateBuilder {
	ub := qb.statementBuilder.Update(table)
	if pred, ok := qb.predicate(ctx, table, OpUpdate); ok {
		ub = ub.Where(pred)
	}
	return ub
}

// Delete starts a DELETE from table restricted to the caller's tenant.
func (qb *QueryBuilder) Delete(ctx context.Context, table string) squirrel.DeleteBuilder {
	db := qb.statementBuilder.Delete(table)
	if pred, ok := qb.predicate(ctx, table, OpDelete); ok {
		db = db.Where(pred)
	}
	return db
}

// Insert builds a single-row INSERT of values into table, adding the tenant column when
// the filter decides to auto-fill it. Columns are emitted in sorted order.
func (qb *QueryBuilder) Insert(ctx context.Context, table string, values map[string]any) squirrel.InsertBuilder {
	columns := make([]string, 0, len(values)+1)
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	decision := qb.filter.Decide(ctx, table, OpInsert, columns)
	row := make(map[string]any, len(values)+1)
	for column, value := range values {
		row[column] = value
	}
	if decision.AutoFillInsert {
		column := qb.filter.Column()
		row[column] = decision.FillValue
		columns = append(columns, column)
		sort.Strings(columns)
	}

	args := make([]any, len(columns))
	for i, column := range columns {
		args[i] = row[column]
	}
	return qb.statementBuilder.Insert(table).Columns(columns...).Values(args...)
}

func (qb *QueryBuilder) predicate(ctx context.Context, table string, op Op) (squirrel.Sqlizer, bool) {
	decision := qb.filter.Decide(ctx, table, op, nil)
	if decision.Ignore || !decision.ApplyPredicate {
		return nil, false
	}
	return squirrel.Eq{qb.filter.Column(): decision.PredicateValue}, true
}
