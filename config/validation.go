package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Database type constants
const (
	PostgreSQL = "postgresql"
	Oracle     = "oracle"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their koanf path instead of the Go field name.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks struct-tag constraints and the cross-field rules tags cannot express.
// All violations are reported, each as a *ConfigError.
func Validate(cfg *Config) error {
	var errs []error

	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, toConfigError(fe))
		}
	}

	errs = append(errs, validateIgnoreRules(&cfg.Tenancy.Ignore)...)

	if cfg.IsDatabaseConfigured() {
		errs = append(errs, validateDatabase(&cfg.Database)...)
	}

	return errors.Join(errs...)
}

// toConfigError turns "Config.tenancy.column" into field "tenancy.column".
func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch {
	case fe.Tag() == "required":
		return NewMissingFieldError(field)
	case fe.Tag() == "oneof":
		return NewInvalidFieldError(field, fe.Value(), strings.Fields(fe.Param()))
	case field == "tenancy.sentinel":
		return NewSentinelError(fe.Value())
	default:
		return NewRangeError(field, fe.Tag(), fe.Param(), fe.Value())
	}
}

func validateIgnoreRules(cfg *IgnoreConfig) []error {
	var errs []error
	check := func(path string, entries []string) {
		for i, entry := range entries {
			switch trimmed := strings.TrimSpace(entry); {
			case trimmed == "":
				errs = append(errs, NewIgnoreRuleError(path, i, entry, "is empty"))
			case strings.ContainsAny(trimmed, " \t\n"):
				errs = append(errs, NewIgnoreRuleError(path, i, entry, "contains whitespace"))
			}
		}
	}
	check("tenancy.ignore.tables", cfg.Tables)
	check("tenancy.ignore.prefixes", cfg.Prefixes)
	return errs
}

func validateDatabase(cfg *DatabaseConfig) []error {
	var errs []error
	if cfg.Session.Mirror && cfg.Type != PostgreSQL {
		errs = append(errs, &ConfigError{
			Category: CategoryInvalid,
			Field:    "database.session.mirror",
			Message:  "session mirroring needs database.type " + PostgreSQL,
			Action:   "disable database.session.mirror",
		})
	}
	if cfg.ConnectionString != "" {
		return errs
	}

	if cfg.Host == "" {
		errs = append(errs, NewMissingFieldError("database.host"))
	}
	if cfg.Port == 0 {
		errs = append(errs, NewMissingFieldError("database.port"))
	}
	if cfg.Database == "" && (cfg.Type != Oracle || (cfg.ServiceName == "" && cfg.SID == "")) {
		errs = append(errs, NewMissingFieldError("database.database"))
	}
	if cfg.Username == "" {
		errs = append(errs, NewMissingFieldError("database.username"))
	}
	return errs
}

// DatabaseSettings returns the database section, or a not-configured error when no
// database type is set.
func (c *Config) DatabaseSettings() (*DatabaseConfig, error) {
	if !c.IsDatabaseConfigured() {
		return nil, NewNotConfiguredError("database", "database.type")
	}
	return &c.Database, nil
}
