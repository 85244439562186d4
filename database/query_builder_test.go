package database

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryBuilder(t *testing.T) {
	tests := []struct {
		name   string
		vendor string
		want   string
	}{
		{name: "postgresql", vendor: PostgreSQL, want: "SELECT id FROM orders WHERE tenant_id = $1"},
		{name: "oracle", vendor: Oracle, want: "SELECT id FROM orders WHERE tenant_id = :1"},
		{name: "unknown", vendor: "sqlite", want: "SELECT id FROM orders WHERE tenant_id = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qb := NewQueryBuilder(tt.vendor, nil)
			assert.Equal(t, tt.vendor, qb.Vendor())
			assert.NotNil(t, qb.Filter())

			sql, args, err := qb.Select(tenantCtx(7), "orders", "id").ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
			assert.Equal(t, []any{int64(7)}, args)
		})
	}
}

func TestQueryBuilderSelect(t *testing.T) {
	qb := NewQueryBuilder(PostgreSQL, nil)

	t.Run("combines_with_caller_predicates", func(t *testing.T) {
		sql, args, err := qb.Select(tenantCtx(7), "charging_order", "id", "amount").
			Where(squirrel.Eq{"status": "open"}).
			OrderBy("id").
			ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, amount FROM charging_order WHERE tenant_id = $1 AND status = $2 ORDER BY id", sql)
		assert.Equal(t, []any{int64(7), "open"}, args)
	})

	t.Run("sentinel_without_tenant", func(t *testing.T) {
		sql, args, err := qb.Select(context.Background(), "charging_order", "id").ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM charging_order WHERE tenant_id = $1", sql)
		assert.Equal(t, []any{int64(-1)}, args)
	})

	t.Run("ignored_table_unfiltered", func(t *testing.T) {
		sql, args, err := qb.Select(tenantCtx(7), "sys_tenant", "tenant_id").ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT tenant_id FROM sys_tenant", sql)
		assert.Empty(t, args)
	})
}

func TestQueryBuilderUpdateAndDelete(t *testing.T) {
	qb := NewQueryBuilder(PostgreSQL, nil)

	sql, args, err := qb.Update(tenantCtx(7), "sys_user").
		Set("nick_name", "ada").
		Where(squirrel.Eq{"user_id": 3}).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sys_user SET nick_name = $1 WHERE tenant_id = $2 AND user_id = $3", sql)
	assert.Equal(t, []any{"ada", int64(7), 3}, args)

	sql, args, err = qb.Delete(context.Background(), "sys_user").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM sys_user WHERE tenant_id = $1", sql)
	assert.Equal(t, []any{int64(-1)}, args)

	sql, args, err = qb.Delete(tenantCtx(7), "tmp_import").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM tmp_import", sql)
	assert.Empty(t, args)
}

func TestQueryBuilderInsert(t *testing.T) {
	qb := NewQueryBuilder(PostgreSQL, nil)

	t.Run("autofills_tenant", func(t *testing.T) {
		sql, args, err := qb.Insert(tenantCtx(7), "sys_user", map[string]any{
			"user_name": "ada",
			"email":     "ada@example.com",
		}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO sys_user (email,tenant_id,user_name) VALUES ($1,$2,$3)", sql)
		assert.Equal(t, []any{"ada@example.com", int64(7), "ada"}, args)
	})

	t.Run("keeps_explicit_tenant", func(t *testing.T) {
		sql, args, err := qb.Insert(tenantCtx(7), "sys_user", map[string]any{
			"user_name": "ada",
			"tenant_id": int64(9),
		}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO sys_user (tenant_id,user_name) VALUES ($1,$2)", sql)
		assert.Equal(t, []any{int64(9), "ada"}, args)
	})

	t.Run("no_tenant_no_autofill", func(t *testing.T) {
		sql, args, err := qb.Insert(context.Background(), "sys_user", map[string]any{"user_name": "ada"}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO sys_user (user_name) VALUES ($1)", sql)
		assert.Equal(t, []any{"ada"}, args)
	})

	t.Run("ignored_table", func(t *testing.T) {
		sql, _, err := qb.Insert(tenantCtx(7), "sys_oper_log", map[string]any{"title": "login"}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO sys_oper_log (title) VALUES ($1)", sql)
	})
}

func TestQueryBuilderCustomColumn(t *testing.T) {
	qb := NewQueryBuilder(PostgreSQL, NewTenantFilter(WithTenantColumn("org_id")))

	sql, args, err := qb.Insert(tenantCtx(4), "projects", map[string]any{"name": "x"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO projects (name,org_id) VALUES ($1,$2)", sql)
	assert.Equal(t, []any{"x", int64(4)}, args)
}
