// Package config holds the connection settings and the YAML file they are
// persisted to.
package config

import (
	"fmt"
	"strings"

	"github.com/kilombo/crm/internal/errs"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Defaults used when no configuration file exists yet.
const (
	DefaultDriver   = DriverMySQL
	DefaultHost     = "localhost"
	DefaultUsername = "admin"
	DefaultPassword = "admin"
	DefaultDatabase = "kilombo"
)

// ConnectionConfig is an immutable description of how to reach the database.
// For the sqlite driver Database is the file path and the network fields are ignored.
type ConnectionConfig struct {
	Driver   string `yaml:"driver" json:"driver"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password,omitempty"`
	Database string `yaml:"database" json:"database"`
}

// Default returns the out-of-the-box connection settings.
func Default() ConnectionConfig {
	return ConnectionConfig{
		Driver:   DefaultDriver,
		Host:     DefaultHost,
		Username: DefaultUsername,
		Password: DefaultPassword,
		Database: DefaultDatabase,
	}
}

// DriverName returns the configured driver, falling back to mysql.
func (c ConnectionConfig) DriverName() string {
	if c.Driver == "" {
		return DefaultDriver
	}
	return strings.ToLower(c.Driver)
}

// Embedded reports whether the config targets a file-backed database.
func (c ConnectionConfig) Embedded() bool {
	return c.DriverName() == DriverSQLite
}

// Validate checks that every field required to build a connection string is present.
func (c ConnectionConfig) Validate() error {
	switch c.DriverName() {
	case DriverMySQL, DriverPostgres:
	case DriverSQLite:
		if strings.TrimSpace(c.Database) == "" {
			return errs.New(errs.ErrKindValidationFailed, "la ruta de la base de datos es obligatoria")
		}
		return nil
	default:
		return errs.Newf(errs.ErrKindValidationFailed, "driver no soportado: %q", c.Driver)
	}

	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.Database) == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return errs.Newf(errs.ErrKindValidationFailed,
			"configuración incompleta, faltan: %s", strings.Join(missing, ", "))
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindValidationFailed, "puerto inválido: %d", c.Port)
	}
	return nil
}

// Info is a human readable summary that never includes the password.
func (c ConnectionConfig) Info() string {
	if c.Embedded() {
		return fmt.Sprintf("Driver: %s\nArchivo: %s", c.DriverName(), c.Database)
	}
	return fmt.Sprintf("Driver: %s\nHost: %s\nUsuario: %s\nBase de datos: %s",
		c.DriverName(), c.Address(), c.Username, c.Database)
}

// Address is host[:port].
func (c ConnectionConfig) Address() string {
	if c.Port > 0 {
		return fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	return c.Host
}

// String implements fmt.Stringer without leaking the password.
func (c ConnectionConfig) String() string {
	if c.Embedded() {
		return fmt.Sprintf("%s://%s", c.DriverName(), c.Database)
	}
	return fmt.Sprintf("%s://%s@%s/%s", c.DriverName(), c.Username, c.Address(), c.Database)
}

// Redacted returns a copy with the password removed, safe to serialize.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	c.Password = ""
	return c
}
