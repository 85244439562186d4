package config

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups configuration errors by what the operator has to do about them.
type Category string

const (
	CategoryMissing       Category = "missing"
	CategoryInvalid       Category = "invalid"
	CategoryNotConfigured Category = "not_configured"
)

// ErrNotConfigured marks an optional feature that was left off on purpose.
var ErrNotConfigured = errors.New("not configured")

// ConfigError names a configuration field, what is wrong with it and how to fix it.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Category Category
	Field    string // koanf path, e.g. "tenancy.sentinel"
	Message  string
	Action   string
	Details  []string
}

// Error renders "config <category> <field>: <message> (<action>): <details>".
func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config %s %s: %s", e.Category, e.Field, e.Message)
	if e.Action != "" {
		fmt.Fprintf(&b, " (%s)", e.Action)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	return b.String()
}

// envVarFor maps a koanf path to the environment variable that overrides it.
func envVarFor(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// NewMissingFieldError reports a required field that has no value.
func NewMissingFieldError(path string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Field:    path,
		Message:  "required",
		Action:   fmt.Sprintf("set %s or %s in config.yaml", envVarFor(path), path),
	}
}

// NewInvalidFieldError reports a value outside an enumerated set.
func NewInvalidFieldError(path string, value any, options []string) *ConfigError {
	err := &ConfigError{
		Category: CategoryInvalid,
		Field:    path,
		Message:  fmt.Sprintf("invalid value %q", fmt.Sprint(value)),
	}
	if len(options) > 0 {
		err.Action = "must be one of: " + strings.Join(options, ", ")
	}
	return err
}

var rangeOperators = map[string]string{
	"min": ">=",
	"max": "<=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// NewRangeError reports a numeric or duration value outside its bound.
// tag is the validator tag ("min", "gt", ...) and bound its parameter.
func NewRangeError(path, tag, bound string, value any) *ConfigError {
	op, ok := rangeOperators[tag]
	if !ok {
		op = tag
	}
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    path,
		Message:  fmt.Sprintf("out of range: got %v", value),
		Action:   fmt.Sprintf("must be %s %s", op, bound),
	}
}

// NewSentinelError reports a tenant sentinel that could equal a real tenant id.
// Tenant ids are positive, so only zero and negative sentinels match nothing.
func NewSentinelError(value any) *ConfigError {
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    "tenancy.sentinel",
		Message:  fmt.Sprintf("sentinel %v can match a real tenant", value),
		Action:   "use 0 or a negative value",
		Details:  []string{"reads without a bound tenant are filtered on the sentinel"},
	}
}

// NewIgnoreRuleError reports a malformed entry of tenancy.ignore.tables or
// tenancy.ignore.prefixes.
func NewIgnoreRuleError(path string, index int, entry, reason string) *ConfigError {
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    fmt.Sprintf("%s[%d]", path, index),
		Message:  fmt.Sprintf("ignore rule %q %s", entry, reason),
		Action:   "use a bare table name or prefix",
	}
}

// NewNotConfiguredError reports an optional feature that is off. It is informational.
func NewNotConfiguredError(feature, path string) *ConfigError {
	return &ConfigError{
		Category: CategoryNotConfigured,
		Field:    feature,
		Message:  "(optional)",
		Action:   fmt.Sprintf("to enable: set %s or %s in config.yaml", envVarFor(path), path),
	}
}

// IsNotConfigured reports whether err marks an optional feature that is off.
func IsNotConfigured(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr) && cfgErr.Category == CategoryNotConfigured
}
