package database

import (
	"context"
	"strings"

	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

const (
	// DefaultTenantColumn is the column that carries the owning tenant.
	DefaultTenantColumn = "tenant_id"
	// DefaultSentinelTenant matches no real tenant. Reads without a bound tenant are
	// filtered on it so they return nothing rather than every tenant's rows.
	DefaultSentinelTenant int64 = -1
)

// Op is the kind of data operation being filtered.
type Op int

const (
	OpRead Op = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Decision tells the data-access layer how to scope one statement.
type Decision struct {
	// Ignore exempts the table; no predicate and no auto-fill apply.
	Ignore bool
	// ApplyPredicate requests WHERE <column> = PredicateValue on reads, updates and deletes.
	ApplyPredicate bool
	PredicateValue int64
	// AutoFillInsert requests the tenant column be added to an insert with FillValue.
	AutoFillInsert bool
	FillValue      int64
}

// FilterOption configures a TenantFilter.
type FilterOption func(*TenantFilter)

// WithTenantColumn overrides the tenant column name.
func WithTenantColumn(column string) FilterOption {
	return func(f *TenantFilter) {
		if column = strings.TrimSpace(column); column != "" {
			f.column = column
		}
	}
}

// WithSentinel overrides the predicate value used when no tenant is bound.
// Positive values are real tenant ids and are ignored.
func WithSentinel(sentinel int64) FilterOption {
	return func(f *TenantFilter) {
		if sentinel <= 0 {
			f.sentinel = sentinel
		}
	}
}

// WithIgnoreRules replaces the default ignore rules.
func WithIgnoreRules(rules *IgnoreRules) FilterOption {
	return func(f *TenantFilter) {
		if rules != nil {
			f.rules = rules
		}
	}
}

// WithFilterLogger sets the logger used for inserts that cannot be auto-filled.
func WithFilterLogger(log logger.Logger) FilterOption {
	return func(f *TenantFilter) {
		if log != nil {
			f.log = log
		}
	}
}

// TenantFilter decides how statements against a table are scoped to the caller's tenant.
// It performs no I/O and is safe for concurrent use.
type TenantFilter struct {
	column   string
	sentinel int64
	rules    *IgnoreRules
	log      logger.Logger
}

// NewTenantFilter creates a filter with the default column, sentinel and ignore rules.
func NewTenantFilter(opts ...FilterOption) *TenantFilter {
	f := &TenantFilter{
		column:   DefaultTenantColumn,
		sentinel: DefaultSentinelTenant,
		rules:    DefaultIgnoreRules(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Column returns the tenant column name.
func (f *TenantFilter) Column() string {
	return f.column
}

// Sentinel returns the predicate value used when no tenant is bound.
func (f *TenantFilter) Sentinel() int64 {
	return f.sentinel
}

// IsIgnored reports whether table is exempt from tenant filtering.
func (f *TenantFilter) IsIgnored(table string) bool {
	return f.rules.Matches(table)
}

// Decide scopes one statement against table. insertColumns is only consulted for OpInsert.
func (f *TenantFilter) Decide(ctx context.Context, table string, op Op, insertColumns []string) Decision {
	if f.IsIgnored(table) {
		return Decision{Ignore: true}
	}

	tenantID, bound := multitenant.GetTenant(ctx)

	if op == OpInsert {
		if f.hasTenantColumn(insertColumns) {
			return Decision{}
		}
		if !bound {
			// Left to the database: a NOT NULL tenant column rejects the row.
			f.log.WithFields(multitenant.LogFields(ctx)).Warn().
				Str("table", table).
				Str("column", f.column).
				Msg("Insert without tenant context; tenant column not auto-filled")
			return Decision{}
		}
		return Decision{AutoFillInsert: true, FillValue: tenantID}
	}

	if !bound {
		return Decision{ApplyPredicate: true, PredicateValue: f.sentinel}
	}
	return Decision{ApplyPredicate: true, PredicateValue: tenantID}
}

func (f *TenantFilter) hasTenantColumn(columns []string) bool {
	for _, c := range columns {
		if strings.EqualFold(normalizeIdentifier(c), f.column) {
			return true
		}
	}
	return false
}
