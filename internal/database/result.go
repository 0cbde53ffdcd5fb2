package database

import (
	"fmt"
	"strings"

	"github.com/kilombo/crm/internal/config"
)

// ErrorType is the diagnostic category of a connection test failure.
type ErrorType int

const (
	ErrorTypeNone ErrorType = iota
	ErrorTypeHost
	ErrorTypeAuthentication
	ErrorTypeDatabase
	ErrorTypeConnection
	ErrorTypeUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNone:
		return "none"
	case ErrorTypeHost:
		return "host_error"
	case ErrorTypeAuthentication:
		return "authentication_error"
	case ErrorTypeDatabase:
		return "database_error"
	case ErrorTypeConnection:
		return "connection_error"
	default:
		return "unknown"
	}
}

// Title is the short heading shown above a diagnostic.
func (t ErrorType) Title() string {
	switch t {
	case ErrorTypeNone:
		return "Conexión Exitosa"
	case ErrorTypeHost:
		return "Error de Servidor"
	case ErrorTypeAuthentication:
		return "Error de Autenticación"
	case ErrorTypeDatabase:
		return "Error de Base de Datos"
	case ErrorTypeConnection:
		return "Error de Conexión"
	default:
		return "Error Desconocido"
	}
}

// MarshalText encodes the type by name in JSON payloads.
func (t ErrorType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ErrorType) UnmarshalText(b []byte) error {
	for c := ErrorTypeNone; c <= ErrorTypeUnknown; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("tipo de error desconocido %q", b)
}

// TestResult is the outcome of TestConnection. Success implies ErrorType is ErrorTypeNone.
type TestResult struct {
	Success   bool      `json:"success"`
	ErrorType ErrorType `json:"error_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
}

// Succeeded builds a successful result for cfg.
func Succeeded(cfg config.ConnectionConfig) TestResult {
	return TestResult{
		Success:   true,
		ErrorType: ErrorTypeNone,
		Title:     ErrorTypeNone.Title(),
		Message:   "Conexión establecida correctamente.\n\n" + cfg.Info(),
	}
}

// Failed builds a failed result with a diagnostic for t.
func Failed(t ErrorType, cfg config.ConnectionConfig, detail string) TestResult {
	if t == ErrorTypeNone {
		t = ErrorTypeUnknown
	}
	return TestResult{
		ErrorType: t,
		Title:     t.Title(),
		Message:   Describe(t, cfg, detail),
	}
}

// Describe renders the actionable message shown for a failed test.
// It is pure and never includes the password.
func Describe(t ErrorType, cfg config.ConnectionConfig, detail string) string {
	var b strings.Builder

	switch t {
	case ErrorTypeHost:
		fmt.Fprintf(&b, "No se puede conectar al servidor %s.\n\n", hostOf(cfg))
		b.WriteString("Verifique que:\n")
		b.WriteString("- El servidor de base de datos esté en ejecución.\n")
		b.WriteString("- La dirección y el puerto sean correctos.\n")
		b.WriteString("- Ningún firewall bloquee la conexión.\n")
	case ErrorTypeAuthentication:
		fmt.Fprintf(&b, "Acceso denegado para el usuario '%s'.\n\n", cfg.Username)
		b.WriteString("Verifique el usuario y la contraseña, y que el usuario tenga\n")
		fmt.Fprintf(&b, "permiso para conectarse desde este equipo a %s.\n", hostOf(cfg))
	case ErrorTypeDatabase:
		fmt.Fprintf(&b, "La base de datos '%s' no existe o no es accesible.\n\n", cfg.Database)
		b.WriteString("Verifique el nombre de la base de datos y que haya sido creada\n")
		b.WriteString("con el esquema de Kilombo (ejecute 'kilombo migrate').\n")
	case ErrorTypeConnection:
		fmt.Fprintf(&b, "No se pudo establecer la conexión con %s.\n\n", hostOf(cfg))
		b.WriteString("Revise los datos de conexión y la configuración del driver,\n")
		b.WriteString("y vuelva a intentarlo.\n")
	default:
		b.WriteString("Error desconocido al probar la conexión.\n\n")
		b.WriteString("Revise los registros de la aplicación para más detalles.\n")
	}

	if detail != "" {
		fmt.Fprintf(&b, "\nDetalles: %s", detail)
	}
	return b.String()
}

func hostOf(cfg config.ConnectionConfig) string {
	if cfg.Embedded() {
		return cfg.Database
	}
	return cfg.Address()
}
