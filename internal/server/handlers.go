package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cybertec-postgresql/sqlconsole/internal/auth"
	"github.com/cybertec-postgresql/sqlconsole/internal/console"
	"github.com/cybertec-postgresql/sqlconsole/internal/database"
	sqlerrors "github.com/cybertec-postgresql/sqlconsole/internal/errors"
	"github.com/cybertec-postgresql/sqlconsole/internal/history"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/internal/report"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

const (
	statusSuccess = "success"
	statusError   = "error"
	typeConsole   = "sqlConsole"

	msgNoDataSource = "The DataSource name to be executed is not set."
	msgNoSQL        = "The SQL statement to be executed is not set."
)

func writeJSON(w http.ResponseWriter, status int, resp *console.Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Debug("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &console.Response{Status: statusError, Message: message})
}

// decodeBody reads a JSON request body, answering 400 or 413 itself on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("The request exceeds the upload limit of %d bytes.", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req console.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, expires, err := s.auth.Login(req.User, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Warn("failed login for %q from %s", req.User, clientIP(r))
		writeError(w, http.StatusUnauthorized, "The user name or password is incorrect.")
		return
	}
	if err != nil {
		logger.Error("login failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed.")
		return
	}

	w.Header().Set(console.TokenHeader, token)
	writeJSON(w, http.StatusOK, &console.Response{Status: statusSuccess, Token: token, Expires: &expires})
}

func (s *Server) handleDataSources(w http.ResponseWriter, r *http.Request) {
	value, err := json.Marshal(s.registry.List())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &console.Response{Status: statusSuccess, Value: value})
}

func (s *Server) handleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var req console.ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dataSource := strings.TrimSpace(req.DataSource)
	if dataSource == "" {
		writeError(w, http.StatusBadRequest, msgNoDataSource)
		return
	}
	decoded, err := console.DecodeSQL(req.SQL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Non-browser clients may send text that still carries comments.
	stmt, err := console.PrepareLines(decoded)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoSQL)
		return
	}
	format := req.Format
	if format == "" {
		format = console.FormatJSON
	}
	if format != console.FormatJSON && format != console.FormatHTML {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format %q.", format))
		return
	}

	ex, err := s.registry.Get(r.Context(), dataSource)
	if errors.Is(err, database.ErrUnknownDataSource) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("The DataSource %q does not exist.", dataSource))
		return
	}
	if err != nil {
		logger.Error("%v", err)
		var connErr *sqlerrors.ConnectionError
		if errors.As(err, &connErr) {
			writeError(w, http.StatusServiceUnavailable, connErr.Message)
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	user := userFromContext(r.Context())
	sql := stmt.SQL
	logger.Debug("%s executes on %s: %s", user, dataSource, sql)
	results, err := ex.Execute(r.Context(), sql, database.ExecOptions{
		MaxRows: s.config.MaxRows,
		Timeout: s.config.Timeout,
	})
	if err != nil {
		var execErr *sqlerrors.ExecutionError
		if errors.As(err, &execErr) && execErr.Position > 0 {
			execErr.Line = stmt.Line(execErr.Position)
		}
	}
	s.record(user, dataSource, sql, results, err)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if format == console.FormatHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.NewHTMLReporter().Format(report.Single(dataSource, sql, results), w); err != nil {
			logger.Debug("failed to write response: %v", err)
		}
		return
	}

	value, err := json.Marshal(results)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &console.Response{
		Status: statusSuccess,
		Type:   typeConsole,
		SQL:    console.EncodeSQL(sql),
		Value:  value,
	})
}

func (s *Server) record(user, dataSource, sql string, results []*types.Result, execErr error) {
	if s.history == nil {
		return
	}
	entry := history.Entry{User: user, DataSource: dataSource, SQL: sql}
	entry.Tally(results)
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	if _, err := s.history.Append(entry); err != nil {
		logger.Warn("failed to record history: %v", err)
	}
}
