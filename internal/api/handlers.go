package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/errs"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conns.Acquire(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"kind":   errs.KindOf(err).String(),
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"conn_id": conn.ID.String(),
	})
}

type configResponse struct {
	Config config.ConnectionConfig `json:"config"`
	Info   string                  `json:"info"`
	Stats  database.Stats          `json:"stats"`
}

func (s *Server) currentConfig(r *http.Request) configResponse {
	return configResponse{
		Config: s.store.Connection().Redacted(),
		Info:   s.conns.Info(r.Context()),
		Stats:  s.conns.Stats(),
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentConfig(r))
}

// handleTestConfig never touches the live connection.
func (s *Server) handleTestConfig(w http.ResponseWriter, r *http.Request) {
	var candidate config.ConnectionConfig
	if err := readJSON(r, &candidate); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	writeJSON(w, http.StatusOK, s.conns.TestConnection(r.Context(), candidate))
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.ConnectionConfig
	if err := readJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	if err := s.store.Set(cfg); err != nil {
		s.writeErr(w, err)
		return
	}
	s.conns.RefreshConfiguration()
	s.log.InfoWith("configuration saved", map[string]any{"target": cfg.String()})
	writeJSON(w, http.StatusOK, s.currentConfig(r))
}

func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(); err != nil {
		s.writeErr(w, err)
		return
	}
	s.conns.RefreshConfiguration()
	s.log.Info("configuration reset to defaults")
	writeJSON(w, http.StatusOK, s.currentConfig(r))
}

func (s *Server) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit debe ser un entero positivo")
			return
		}
		limit = n
	}

	top, err := s.reports.TopCustomersByGrossProfit(r.Context(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// writeErr maps a classified error to its HTTP status.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"kind": kind.String()})
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound, errs.ErrKindNotFoundOnMutate:
		return http.StatusNotFound
	case errs.ErrKindValidationFailed:
		return http.StatusBadRequest
	case errs.ErrKindIntegrityViolation:
		return http.StatusConflict
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed, errs.ErrKindHostUnreachable, errs.ErrKindAuthentication,
		errs.ErrKindDatabaseNotFound, errs.ErrKindSchemaInvalid:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
