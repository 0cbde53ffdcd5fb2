package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/errs"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   DriverError
		want ErrorType
	}{
		{"link failure", DriverError{Message: "Communications link failure", Recognized: true}, ErrorTypeHost},
		{"refused", DriverError{Message: "dial tcp 10.0.0.1:3306: connect: connection refused"}, ErrorTypeHost},
		{"unknown host", DriverError{Message: "dial tcp: lookup db.invalid: no such host"}, ErrorTypeHost},
		{"access denied", DriverError{Message: "Access denied for user 'admin'@'localhost'", SQLState: "28000", Recognized: true}, ErrorTypeAuthentication},
		{"pg auth", DriverError{Message: "password authentication failed for user \"crm\""}, ErrorTypeAuthentication},
		{"unknown database", DriverError{Message: "Unknown database 'kilombo'", SQLState: "42000", Recognized: true}, ErrorTypeDatabase},
		{"missing database", DriverError{Message: "database \"kilombo\" does not exist"}, ErrorTypeDatabase},
		{"missing role", DriverError{Message: "role \"bob\" does not exist", SQLState: "28000", Recognized: true}, ErrorTypeAuthentication},
		{"missing relation", DriverError{Message: "relation \"clientes\" does not exist", SQLState: "42P01", Recognized: true}, ErrorTypeConnection},
		{"state 08", DriverError{Message: "server closed", SQLState: "08S01", Recognized: true}, ErrorTypeHost},
		{"state 28", DriverError{Message: "nope", SQLState: "28P01", Recognized: true}, ErrorTypeAuthentication},
		{"state 3D", DriverError{Message: "nope", SQLState: "3d000", Recognized: true}, ErrorTypeDatabase},
		{"recognized other", DriverError{Message: "too many connections", SQLState: "HY000", Recognized: true}, ErrorTypeConnection},
		{"unrecognized", DriverError{Message: "something odd"}, ErrorTypeUnknown},
		{"host keyword wins over auth state", DriverError{Message: "connection refused", SQLState: "28000"}, ErrorTypeHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
			// pure
			assert.Equal(t, Classify(tt.in), Classify(tt.in))
		})
	}
}

func TestClassifyState(t *testing.T) {
	assert.Equal(t, errs.ErrKindIntegrityViolation, ClassifyState("23505"))
	assert.Equal(t, errs.ErrKindIntegrityViolation, ClassifyState("23000"))
	assert.Equal(t, errs.ErrKindSyntaxOrAccess, ClassifyState("42P01"))
	assert.Equal(t, errs.ErrKindUnknown, ClassifyState("08006"))
	assert.Equal(t, errs.ErrKindUnknown, ClassifyState(""))
	assert.Equal(t, errs.ErrKindUnknown, ClassifyState("2"))
}

func TestInspect_Generic(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	de := Inspect(fmt.Errorf("open: %w", refused))
	assert.True(t, de.Recognized)
	assert.True(t, de.Connectivity())
	assert.Equal(t, ErrorTypeHost, Classify(de))

	de = Inspect(driver.ErrBadConn)
	assert.True(t, de.Recognized)
	assert.True(t, de.Connectivity())

	de = Inspect(context.DeadlineExceeded)
	assert.True(t, de.Recognized)
	assert.False(t, de.Connectivity())

	de = Inspect(errors.New("plain"))
	assert.False(t, de.Recognized)
	assert.Equal(t, ErrorTypeUnknown, Classify(de))

	assert.Equal(t, DriverError{}, Inspect(nil))
}

func TestDescribe(t *testing.T) {
	cfg := config.ConnectionConfig{
		Driver:   config.DriverMySQL,
		Host:     "db.local",
		Port:     3306,
		Username: "ventas",
		Password: "s3cr3t",
		Database: "kilombo",
	}

	tests := []struct {
		typ  ErrorType
		want string
	}{
		{ErrorTypeHost, "No se puede conectar al servidor db.local:3306"},
		{ErrorTypeAuthentication, "Acceso denegado para el usuario 'ventas'"},
		{ErrorTypeDatabase, "La base de datos 'kilombo' no existe"},
		{ErrorTypeConnection, "No se pudo establecer la conexión con db.local:3306"},
		{ErrorTypeUnknown, "Error desconocido"},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			msg := Describe(tt.typ, cfg, "detalle")
			assert.Contains(t, msg, tt.want)
			assert.Contains(t, msg, "Detalles: detalle")
			assert.NotContains(t, msg, "s3cr3t")
			assert.Equal(t, msg, Describe(tt.typ, cfg, "detalle"))
		})
	}
}

func TestTestResult(t *testing.T) {
	cfg := config.ConnectionConfig{Driver: config.DriverSQLite, Database: "/tmp/crm.db"}

	ok := Succeeded(cfg)
	assert.True(t, ok.Success)
	assert.Equal(t, ErrorTypeNone, ok.ErrorType)

	failed := Failed(ErrorTypeNone, cfg, "")
	assert.False(t, failed.Success)
	assert.Equal(t, ErrorTypeUnknown, failed.ErrorType, "a failure never reports None")
	assert.Equal(t, "Error Desconocido", failed.Title)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("oracle")
	assert.True(t, errs.IsValidationFailed(err))
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, errs.ErrKindHostUnreachable, kindFor(ErrorTypeHost))
	assert.Equal(t, errs.ErrKindAuthentication, kindFor(ErrorTypeAuthentication))
	assert.Equal(t, errs.ErrKindDatabaseNotFound, kindFor(ErrorTypeDatabase))
	assert.Equal(t, errs.ErrKindConnectionFailed, kindFor(ErrorTypeUnknown))
}
