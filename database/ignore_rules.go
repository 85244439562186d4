package database

import "strings"

// Tables that hold platform-wide data and are never tenant filtered.
var defaultIgnoredTables = []string{
	"sys_tenant",
	"sys_tenant_package",
	"sys_dict_type",
	"sys_dict_data",
	"sys_config",
	"sys_menu",
	"sys_job",
	"sys_oper_log",
}

// Prefixes of scratch tables that are never tenant filtered.
var defaultIgnoredPrefixes = []string{
	"temp_",
	"tmp_",
	"cache_",
}

// IgnoreRules decides which tables are exempt from tenant filtering. It is read-only
// after construction.
type IgnoreRules struct {
	tables   map[string]struct{}
	prefixes []string
}

// DefaultIgnoreRules returns the platform table set and scratch-table prefixes.
func DefaultIgnoreRules() *IgnoreRules {
	return NewIgnoreRules(defaultIgnoredTables, defaultIgnoredPrefixes)
}

// NewIgnoreRules builds a rule set from exact table names and name prefixes. Entries are
// matched case-insensitively.
func NewIgnoreRules(tables, prefixes []string) *IgnoreRules {
	r := &IgnoreRules{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		if t = normalizeIdentifier(t); t != "" {
			r.tables[t] = struct{}{}
		}
	}
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			r.prefixes = append(r.prefixes, p)
		}
	}
	return r
}

// Matches reports whether table is exempt. Quoting and schema qualification are ignored,
// so "public"."SYS_TENANT" matches sys_tenant.
func (r *IgnoreRules) Matches(table string) bool {
	if r == nil {
		return false
	}
	name := normalizeIdentifier(table)
	if name == "" {
		return false
	}
	if _, ok := r.tables[name]; ok {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// normalizeIdentifier strips identifier quotes and any qualifier and lowercases the
// remaining name.
func normalizeIdentifier(ident string) string {
	name := strings.TrimSpace(ident)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(name, "\"`[] ")
	return strings.ToLower(name)
}
