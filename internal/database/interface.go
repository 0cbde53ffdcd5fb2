package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/errs"
)

// Dialect is the contract every engine package implements.
// The manager and the repositories never import an engine package directly;
// engines register themselves from init.
type Dialect interface {
	// Name is the config value selecting this dialect (mysql, postgres, sqlite).
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN builds the connection string. connectTimeout bounds the dial.
	DSN(cfg config.ConnectionConfig, connectTimeout time.Duration) (string, error)

	// ColumnsQuery returns the column names of one table in the current
	// database. It takes the table name as its only bind parameter.
	ColumnsQuery() string

	// Inspect interprets a native driver error. ok is false when the error
	// did not originate from this driver.
	Inspect(err error) (DriverError, bool)

	// SupportsReturning reports whether INSERT ... RETURNING id is needed
	// to learn generated keys.
	SupportsReturning() bool
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
)

// Register makes a dialect available by name. It panics when called twice
// for the same name, like database/sql.Register.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if d == nil {
		panic("database: Register dialect is nil")
	}
	if _, dup := dialects[d.Name()]; dup {
		panic("database: Register called twice for dialect " + d.Name())
	}
	dialects[d.Name()] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, errs.New(errs.ErrKindValidationFailed,
			fmt.Sprintf("driver %q no disponible (¿falta importar el paquete del dialecto?)", name))
	}
	return d, nil
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func registered() []Dialect {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]Dialect, 0, len(dialects))
	for _, d := range dialects {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
