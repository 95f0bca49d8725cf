package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"civicdesk/api/internal/auth"
	"civicdesk/api/internal/export"
	"civicdesk/api/internal/media"
	"civicdesk/api/internal/scope"
	"civicdesk/api/internal/search"
	"civicdesk/api/internal/store"
)

const maxUploadBytes = 32 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Citizen routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/submit" {
		s.handleSubmit(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/submit" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/track" {
		item, err := s.service.Track(r.Context(), r.URL.Query().Get("phone"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": complaintJSON(item)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/track-requests" {
		var body struct {
			Phone string `json:"phone"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		items, err := s.service.TrackHistory(r.Context(), body.Phone)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/login" {
		var body struct {
			Phone string `json:"phone"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.RecordLogin(r.Context(), body.Phone); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Staff auth routes
	if r.Method == http.MethodPost && r.URL.Path == "/api/staff/login" {
		s.handleStaffLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/staff/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON(sess))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/staff/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/staff/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		sess, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"department":    sess.Department,
			"scopes":        sess.Scopes,
		})
		return
	}

	// Everything below requires a staff session.
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		s.handleStaffRead(w, r, session)
		return
	}

	if r.Method == http.MethodPost {
		s.handleStaffAction(w, r, session)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleStaffRead(w http.ResponseWriter, r *http.Request, session Session) {
	path := r.URL.Path
	department := r.URL.Query().Get("department")

	switch path {
	case "/data", "/data-processed":
		// Unfiltered listings expose every department and need the
		// central scope; a department filter needs that department.
		if !s.allowListing(w, session, department) {
			return
		}
		var (
			items []store.Complaint
			err   error
		)
		if path == "/data" {
			items, err = s.service.ListUnprocessed(r.Context(), department)
		} else {
			items, err = s.service.ListProcessed(r.Context(), department)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return

	case "/data-approved":
		if department == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "department is required", nil)
			return
		}
		if !s.requireScope(w, session, scope.Scope(department)) {
			return
		}
		items, err := s.service.ListApproved(r.Context(), department)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return

	case "/data-approved-all":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		items, err := s.service.ListApprovedAll(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return

	case "/data-rejected":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		items, err := s.service.ListRejected(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return

	case "/data-pending", "/data-in-progress", "/data-completed":
		if !s.allowListing(w, session, department) {
			return
		}
		bucket := map[string]string{
			"/data-pending":     store.BucketPending,
			"/data-in-progress": store.BucketInProgress,
			"/data-completed":   store.BucketCompleted,
		}[path]
		rows, err := s.service.ListBucket(r.Context(), bucket, department)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": bucketListJSON(rows)})
		return

	case "/api/search":
		s.handleSearch(w, r, session)
		return
	}

	// /data-<department>-all
	if slug, ok := departmentAllPath(path); ok {
		if !s.requireScope(w, session, scope.Scope(slug)) {
			return
		}
		items, err := s.service.ListByDepartment(r.Context(), slug)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": complaintListJSON(items)})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleStaffAction(w http.ResponseWriter, r *http.Request, session Session) {
	parts := splitPath(r.URL.Path)

	// POST /api/requests/:id/export
	if len(parts) == 4 && parts[0] == "api" && parts[1] == "requests" && parts[3] == "export" {
		id, ok := parseID(w, parts[2])
		if !ok {
			return
		}
		s.handleExport(w, r, id)
		return
	}

	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	action := parts[0]
	id, ok := parseID(w, parts[1])
	if !ok {
		return
	}

	switch action {
	case "approve":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		item, err := s.service.Approve(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": complaintJSON(item)})

	case "reject":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.Reject(r.Context(), id, body.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": complaintJSON(item)})

	case "disapprove":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		item, err := s.service.Disapprove(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": complaintJSON(item)})

	case "set-department":
		if !s.requireScope(w, session, scope.Central) {
			return
		}
		var body struct {
			Department string `json:"department"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.SetDepartment(r.Context(), id, body.Department)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": complaintJSON(item)})

	case "set-status":
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.SetStatus(r.Context(), id, body.Status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":   true,
			"item": complaintJSON(result.Complaint),
			"sync": syncJSON(result.Bucket, result.Synced),
		})

	case "complete-with-media":
		files, err := parseUploads(r, "extraFiles")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.CompleteWithMedia(r.Context(), id, files)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"item":       complaintJSON(result.Complaint),
			"addedMedia": result.Added,
			"sync":       syncJSON(store.BucketCompleted, result.Synced),
		})

	case "delete-completed-file":
		var body struct {
			FileURL string `json:"fileUrl"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.RemoveCompletedMedia(r.Context(), id, body.FileURL)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"removed": result.Removed,
			"item":    complaintJSON(result.Complaint),
			"sync":    syncJSON(store.BucketCompleted, result.Synced),
		})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid multipart form", nil)
		return
	}

	input := SubmitInput{
		Name:     r.FormValue("name"),
		Phone:    r.FormValue("phone"),
		Address:  r.FormValue("address"),
		Category: r.FormValue("category"),
		Message:  r.FormValue("message"),
	}

	if lat := strings.TrimSpace(r.FormValue("latitude")); lat != "" {
		value, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid latitude", nil)
			return
		}
		input.Latitude = &value
	}
	if lng := strings.TrimSpace(r.FormValue("longitude")); lng != "" {
		value, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid longitude", nil)
			return
		}
		input.Longitude = &value
	}

	files, err := parseUploads(r, "media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	input.Files = files

	item, err := s.service.Submit(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Browser form posts get the thank-you page; API clients get JSON.
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "item": complaintJSON(item)})
		return
	}
	http.Redirect(w, r, "/submit-success.html", http.StatusSeeOther)
}

func (s *HTTPServer) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Department string `json:"department"`
		Password   string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.StaffLogin(r.Context(), body.Department, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(sess))
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	q := r.URL.Query()
	department := q.Get("department")

	if department != "" {
		if !s.requireScope(w, session, scope.Scope(department)) {
			return
		}
	} else if !scope.Allows(session.Scopes, scope.Central) {
		// Non-central staff search their own department only.
		department = session.Department
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	response := s.service.Search(search.Query{
		Text:       q.Get("q"),
		Department: department,
		Limit:      limit,
		Offset:     offset,
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, id int64) {
	var body struct {
		Format string `json:"format"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Format == "" {
		body.Format = string(export.FormatPDF)
	}

	result, err := s.service.Export(r.Context(), id, export.Format(body.Format))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// allowListing enforces the listing scope rule: a department filter needs
// that department's scope, no filter needs central.
func (s *HTTPServer) allowListing(w http.ResponseWriter, session Session, department string) bool {
	if department == "" {
		return s.requireScope(w, session, scope.Central)
	}
	return s.requireScope(w, session, scope.Scope(department))
}

func (s *HTTPServer) requireScope(w http.ResponseWriter, session Session, required scope.Scope) bool {
	if scope.Allows(session.Scopes, required) {
		return true
	}
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	return false
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// departmentAllPath matches /data-<department>-all listing paths.
func departmentAllPath(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/data-")
	if trimmed == path || !strings.HasSuffix(trimmed, "-all") {
		return "", false
	}
	slug := strings.TrimSuffix(trimmed, "-all")
	if !scope.ValidDepartment(slug) {
		return "", false
	}
	return slug, true
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid complaint id", nil)
		return 0, false
	}
	return id, true
}

// parseUploads reads every file under the given multipart field into memory.
func parseUploads(r *http.Request, field string) ([]media.Upload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart form")
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	uploads := make([]media.Upload, 0, len(headers))
	for _, header := range headers {
		up, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readUpload(header *multipart.FileHeader) (media.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return media.Upload{}, fmt.Errorf("open upload %s", header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Upload{}, fmt.Errorf("read upload %s", header.Filename)
	}
	return media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func sessionJSON(sess Session) map[string]any {
	return map[string]any{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"department":   sess.Department,
		"scopes":       sess.Scopes,
		"expiresAt":    sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func syncJSON(bucket string, synced bool) map[string]any {
	payload := map[string]any{"synced": synced}
	if bucket != "" {
		payload["bucket"] = bucket
	}
	return payload
}

func mediaJSON(items []store.MediaItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		entry := map[string]any{
			"url":  m.URL,
			"type": string(m.Type),
		}
		if m.Origin != "" {
			entry["origin"] = string(m.Origin)
		}
		out = append(out, entry)
	}
	return out
}

func complaintJSON(c store.Complaint) map[string]any {
	payload := map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"phone":      c.Phone,
		"address":    c.Address,
		"category":   c.Category,
		"message":    c.Message,
		"media":      mediaJSON(c.Media),
		"department": c.Department,
		"status":     c.Status,
		"processed":  c.Processed,
		"createdAt":  c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.Latitude != nil && c.Longitude != nil {
		payload["latitude"] = *c.Latitude
		payload["longitude"] = *c.Longitude
	}
	if c.Approved != nil {
		payload["approved"] = *c.Approved
	}
	if c.RejectReason != "" {
		payload["rejectReason"] = c.RejectReason
	}
	if c.CompletedAt != nil {
		payload["completedAt"] = c.CompletedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func complaintListJSON(items []store.Complaint) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, complaintJSON(item))
	}
	return out
}

func bucketListJSON(rows []store.BucketRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := complaintJSON(row.Complaint)
		entry["originalId"] = row.OriginalID
		entry["copiedAt"] = row.CopiedAt.UTC().Format(time.RFC3339)
		out = append(out, entry)
	}
	return out
}
