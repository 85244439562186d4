package database

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

func tenantCtx(tenant int64) context.Context {
	store := multitenant.NewStore()
	store.Bind(tenant, 1)
	return multitenant.WithStore(context.Background(), store)
}

func TestIgnoreRulesMatches(t *testing.T) {
	rules := DefaultIgnoreRules()

	tests := []struct {
		table    string
		expected bool
	}{
		{table: "sys_tenant", expected: true},
		{table: "sys_tenant_package", expected: true},
		{table: "sys_dict_type", expected: true},
		{table: "sys_dict_data", expected: true},
		{table: "sys_config", expected: true},
		{table: "sys_menu", expected: true},
		{table: "sys_job", expected: true},
		{table: "sys_oper_log", expected: true},
		{table: "SYS_TENANT", expected: true},
		{table: `"public"."sys_tenant"`, expected: true},
		{table: "`sys_menu`", expected: true},
		{table: "temp_sessions", expected: true},
		{table: "tmp_import", expected: true},
		{table: "cache_rates", expected: true},
		{table: "charging_order", expected: false},
		{table: "sys_user", expected: false},
		{table: "sys_tenants", expected: false},
		{table: "attempt_log", expected: false},
		{table: "", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.Matches(tt.table))
		})
	}

	var nilRules *IgnoreRules
	assert.False(t, nilRules.Matches("sys_tenant"))
}

func TestCustomIgnoreRules(t *testing.T) {
	rules := NewIgnoreRules([]string{" Audit_Trail ", ""}, []string{"Staging_", " "})

	assert.True(t, rules.Matches("audit_trail"))
	assert.True(t, rules.Matches("staging_orders"))
	assert.False(t, rules.Matches("sys_tenant"))
}

func TestTenantFilterDecide(t *testing.T) {
	filter := NewTenantFilter()

	tests := []struct {
		name     string
		ctx      context.Context
		table    string
		op       Op
		columns  []string
		expected Decision
	}{
		{
			name:     "ignored_table_read",
			ctx:      tenantCtx(7),
			table:    "sys_tenant",
			op:       OpRead,
			expected: Decision{Ignore: true},
		},
		{
			name:     "ignored_prefix_without_tenant",
			ctx:      context.Background(),
			table:    "temp_sessions",
			op:       OpDelete,
			expected: Decision{Ignore: true},
		},
		{
			name:     "ignored_table_insert",
			ctx:      tenantCtx(7),
			table:    "sys_config",
			op:       OpInsert,
			columns:  []string{"config_key"},
			expected: Decision{Ignore: true},
		},
		{
			name:     "read_with_tenant",
			ctx:      tenantCtx(7),
			table:    "charging_order",
			op:       OpRead,
			expected: Decision{ApplyPredicate: true, PredicateValue: 7},
		},
		{
			name:     "read_without_tenant_uses_sentinel",
			ctx:      context.Background(),
			table:    "charging_order",
			op:       OpRead,
			expected: Decision{ApplyPredicate: true, PredicateValue: -1},
		},
		{
			name:     "update_with_tenant",
			ctx:      tenantCtx(7),
			table:    "sys_user",
			op:       OpUpdate,
			expected: Decision{ApplyPredicate: true, PredicateValue: 7},
		},
		{
			name:     "delete_without_tenant_uses_sentinel",
			ctx:      context.Background(),
			table:    "sys_user",
			op:       OpDelete,
			expected: Decision{ApplyPredicate: true, PredicateValue: -1},
		},
		{
			name:     "insert_autofills_tenant",
			ctx:      tenantCtx(7),
			table:    "sys_user",
			op:       OpInsert,
			columns:  []string{"user_name", "email"},
			expected: Decision{AutoFillInsert: true, FillValue: 7},
		},
		{
			name:     "insert_with_explicit_tenant",
			ctx:      tenantCtx(7),
			table:    "sys_user",
			op:       OpInsert,
			columns:  []string{"user_name", "TENANT_ID"},
			expected: Decision{},
		},
		{
			name:     "insert_with_qualified_tenant_column",
			ctx:      tenantCtx(7),
			table:    "sys_user",
			op:       OpInsert,
			columns:  []string{`"u"."tenant_id"`},
			expected: Decision{},
		},
		{
			name:     "insert_without_tenant_is_not_filled",
			ctx:      context.Background(),
			table:    "sys_user",
			op:       OpInsert,
			columns:  []string{"user_name"},
			expected: Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filter.Decide(tt.ctx, tt.table, tt.op, tt.columns))
		})
	}
}

func TestTenantFilterWarnsOnInsertWithoutTenant(t *testing.T) {
	var buf bytes.Buffer
	filter := NewTenantFilter(WithFilterLogger(logger.NewWithWriter("warn", &buf)))

	decision := filter.Decide(context.Background(), "sys_user", OpInsert, []string{"user_name"})
	assert.False(t, decision.AutoFillInsert)
	assert.Contains(t, buf.String(), "Insert without tenant context")
	assert.Contains(t, buf.String(), `"table":"sys_user"`)

	buf.Reset()
	filter.Decide(tenantCtx(7), "sys_user", OpInsert, []string{"user_name"})
	assert.Empty(t, buf.String())
}

func TestTenantFilterOptions(t *testing.T) {
	filter := NewTenantFilter(
		WithTenantColumn("org_id"),
		WithSentinel(0),
		WithIgnoreRules(NewIgnoreRules([]string{"plans"}, nil)),
		WithTenantColumn("  "),
		WithIgnoreRules(nil),
		WithFilterLogger(nil),
	)

	assert.Equal(t, "org_id", filter.Column())
	assert.Equal(t, int64(0), filter.Sentinel())
	assert.True(t, filter.IsIgnored("plans"))
	assert.False(t, filter.IsIgnored("sys_tenant"))

	assert.Equal(t, Decision{ApplyPredicate: true, PredicateValue: 0},
		filter.Decide(context.Background(), "orders", OpRead, nil))
	assert.Equal(t, Decision{},
		filter.Decide(tenantCtx(3), "orders", OpInsert, []string{"Org_ID"}))
}

func TestTenantFilterRejectsPositiveSentinel(t *testing.T) {
	filter := NewTenantFilter(WithSentinel(7))
	assert.Equal(t, DefaultSentinelTenant, filter.Sentinel())

	for _, op := range []Op{OpRead, OpUpdate, OpDelete} {
		assert.Equal(t, Decision{ApplyPredicate: true, PredicateValue: DefaultSentinelTenant},
			filter.Decide(context.Background(), "charging_order", op, nil), op.String())
	}

	assert.Equal(t, int64(-9), NewTenantFilter(WithSentinel(-9)).Sentinel())
}

func TestTenantFilterReadsIdentityValue(t *testing.T) {
	ctx := multitenant.WithIdentity(context.Background(), multitenant.NewIdentity(12, 0))
	assert.Equal(t, Decision{ApplyPredicate: true, PredicateValue: 12},
		NewTenantFilter().Decide(ctx, "orders", OpRead, nil))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "read", OpRead.String())
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "update", OpUpdate.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Op(42).String())
}
