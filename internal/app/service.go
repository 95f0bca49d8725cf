package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"civicdesk/api/internal/auth"
	"civicdesk/api/internal/config"
	"civicdesk/api/internal/email"
	"civicdesk/api/internal/export"
	"civicdesk/api/internal/media"
	"civicdesk/api/internal/scope"
	"civicdesk/api/internal/search"
	"civicdesk/api/internal/session"
	"civicdesk/api/internal/staffauth"
	"civicdesk/api/internal/store"
	"civicdesk/api/internal/util"
)

// Complaint statuses. Rejected is set through Reject, never through
// SetStatus.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// statusBuckets maps a primary status to its mirror table. Statuses
// without an entry update the primary row only.
var statusBuckets = map[string]string{
	StatusPending:    store.BucketPending,
	StatusInProgress: store.BucketInProgress,
	StatusCompleted:  store.BucketCompleted,
}

// Session is one authenticated staff panel session.
type Session struct {
	Token        string
	RefreshToken string
	Department   string
	Scopes       []string
	JTI          string
	ExpiresAt    time.Time
}

// SubmitInput carries one citizen complaint submission.
type SubmitInput struct {
	Name      string
	Phone     string
	Address   string
	Category  string
	Message   string
	Latitude  *float64
	Longitude *float64
	Files     []media.Upload
}

// StatusResult reports a status change and whether the bucket mirrors
// caught up with it.
type StatusResult struct {
	Complaint store.Complaint
	Bucket    string
	Synced    bool
}

// CompletionResult reports a completion merge.
type CompletionResult struct {
	Complaint store.Complaint
	Added     int
	Synced    bool
}

// RemovalResult reports a completed-media removal. Removed is false when no
// matching completed-origin attachment existed; that is still a success.
type RemovalResult struct {
	Complaint store.Complaint
	Removed   bool
	Synced    bool
}

type dataStore interface {
	InsertComplaint(context.Context, store.Complaint) (int64, error)
	GetComplaint(context.Context, int64) (store.Complaint, error)
	ListUnprocessed(context.Context, string) ([]store.Complaint, error)
	ListProcessed(context.Context, string) ([]store.Complaint, error)
	ListApproved(context.Context, string) ([]store.Complaint, error)
	ListApprovedAll(context.Context) ([]store.Complaint, error)
	ListRejected(context.Context) ([]store.Complaint, error)
	ListByDepartment(context.Context, string) ([]store.Complaint, error)
	Approve(context.Context, int64) error
	Reject(context.Context, int64, string) error
	Disapprove(context.Context, int64) error
	SetDepartment(context.Context, int64, string) error
	UpdateStatus(context.Context, int64, string) error
	UpdateMedia(context.Context, int64, []store.MediaItem) error
	SetCompleted(context.Context, int64, []store.MediaItem) error
	UpsertBucket(context.Context, string, store.Complaint) error
	DeleteFromOtherBuckets(context.Context, int64, string) error
	ListBucket(context.Context, string, string) ([]store.BucketRow, error)
	TrackLatest(context.Context, string) (store.Complaint, error)
	TrackHistory(context.Context, string) ([]store.Complaint, error)
	InsertLoginEvent(context.Context, string) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, department string, scopes []string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (session.TokenData, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type mediaStore interface {
	Store(ctx context.Context, up media.Upload, origin store.MediaOrigin) (store.MediaItem, error)
	StoreAll(ctx context.Context, ups []media.Upload, origin store.MediaOrigin) ([]store.MediaItem, error)
	Remove(ctx context.Context, item store.MediaItem) error
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexComplaint(rec search.ComplaintRecord)
}

type exporter interface {
	Export(c store.Complaint, format export.Format) (*export.Result, error)
}

type notifier interface {
	IsConfigured() bool
	NotifySubmission(data email.SubmissionData) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	staff    *staffauth.Service
	media    mediaStore
	search   searcher
	exporter exporter
	mailer   notifier
}

func New(
	cfg config.Config,
	dataStore *store.PostgresStore,
	sessions *session.RedisStore,
	staff *staffauth.Service,
	mediaSvc *media.Service,
	searchSvc *search.Service,
	exportSvc *export.Service,
	mailer *email.Service,
) *Service {
	s := &Service{
		cfg:   cfg,
		store: dataStore,
		staff: staff,
	}
	if sessions != nil {
		s.sessions = sessions
	}
	if mediaSvc != nil {
		s.media = mediaSvc
	}
	if searchSvc != nil {
		s.search = searchSvc
	}
	if exportSvc != nil {
		s.exporter = exportSvc
	}
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// Submit records a citizen complaint, stores its attachments, mirrors the
// new row into the pending bucket and notifies the intake inbox.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (store.Complaint, error) {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"phone", input.Phone},
		{"address", input.Address},
		{"message", input.Message},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return store.Complaint{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", map[string]any{"fields": missing})
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return store.Complaint{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Latitude and longitude must be provided together", nil)
	}

	items := []store.MediaItem{}
	if len(input.Files) > 0 {
		stored, err := s.media.StoreAll(ctx, input.Files, store.OriginSubmission)
		if err != nil {
			return store.Complaint{}, fmt.Errorf("store submission media: %w", err)
		}
		items = stored
	}

	item := store.Complaint{
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		Category:  strings.TrimSpace(input.Category),
		Message:   strings.TrimSpace(input.Message),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Media:     items,
		Status:    StatusPending,
	}

	id, err := s.store.InsertComplaint(ctx, item)
	if err != nil {
		return store.Complaint{}, err
	}

	created, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return store.Complaint{}, err
	}

	// Mirror into the pending bucket. The primary row is already durable,
	// so a failed mirror only degrades bucket listings.
	if err := s.store.UpsertBucket(ctx, store.BucketPending, created); err != nil {
		log.Printf("submit: pending bucket sync for %d failed: %v", id, err)
	}

	s.indexComplaint(created)
	s.notifySubmission(created)

	return created, nil
}

func (s *Service) indexComplaint(c store.Complaint) {
	if s.search == nil {
		return
	}
	s.search.IndexComplaint(search.ComplaintRecord{
		ID:         c.ID,
		Name:       c.Name,
		Address:    c.Address,
		Message:    c.Message,
		Department: c.Department,
		Status:     c.Status,
	})
}

func (s *Service) notifySubmission(c store.Complaint) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return
	}
	data := email.SubmissionData{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		Address:  c.Address,
		Category: c.Category,
		Message:  c.Message,
	}
	go func() {
		if err := s.mailer.NotifySubmission(data); err != nil {
			log.Printf("submit: notification email for %d failed: %v", c.ID, err)
		}
	}()
}

func (s *Service) GetComplaint(ctx context.Context, id int64) (store.Complaint, error) {
	item, err := s.store.GetComplaint(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Complaint{}, domainError(http.StatusNotFound, "NOT_FOUND", "Complaint not found", nil)
	}
	return item, err
}

// SetStatus moves a complaint to a new status and keeps the bucket mirrors
// in step: the row is upserted into the target bucket and deleted from the
// other two. Any non-empty status is accepted; only statuses in the bucket
// map trigger mirror writes, everything else updates the primary row alone.
// Mirror failures never roll back the primary update; the result reports
// Synced=false instead.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) (StatusResult, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return StatusResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status is required", nil)
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StatusResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Complaint not found", nil)
		}
		return StatusResult{}, err
	}

	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Complaint: item, Synced: true}
	bucket, mirrored := statusBuckets[status]
	if !mirrored {
		return result, nil
	}
	result.Bucket = bucket

	if err := s.store.UpsertBucket(ctx, bucket, item); err != nil {
		log.Printf("set-status: upsert %d into %s failed: %v", id, bucket, err)
		result.Synced = false
		return result, nil
	}
	if err := s.store.DeleteFromOtherBuckets(ctx, id, bucket); err != nil {
		log.Printf("set-status: cleanup of %d outside %s failed: %v", id, bucket, err)
		result.Synced = false
	}

	s.indexComplaint(item)
	return result, nil
}

// CompleteWithMedia appends staff-provided evidence to the complaint's
// media list and moves it to completed. All files are stored before the
// row is touched; a storage failure leaves the complaint unchanged.
func (s *Service) CompleteWithMedia(ctx context.Context, id int64, files []media.Upload) (CompletionResult, error) {
	item, err := s.GetComplaint(ctx, id)
	if err != nil {
		return CompletionResult{}, err
	}

	added := []store.MediaItem{}
	if len(files) > 0 {
		added, err = s.media.StoreAll(ctx, files, store.OriginCompleted)
		if err != nil {
			return CompletionResult{}, fmt.Errorf("store completion media: %w", err)
		}
	}

	merged := append(append([]store.MediaItem{}, item.Media...), added...)
	if err := s.store.SetCompleted(ctx, id, merged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CompletionResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Complaint not found", nil)
		}
		return CompletionResult{}, err
	}

	updated, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return CompletionResult{}, err
	}

	result := CompletionResult{Complaint: updated, Added: len(added), Synced: true}
	if err := s.store.UpsertBucket(ctx, store.BucketCompleted, updated); err != nil {
		log.Printf("complete: upsert %d into completed failed: %v", id, err)
		result.Synced = false
		return result, nil
	}
	if err := s.store.DeleteFromOtherBuckets(ctx, id, store.BucketCompleted); err != nil {
		log.Printf("complete: cleanup of %d failed: %v", id, err)
		result.Synced = false
	}

	s.indexComplaint(updated)
	return result, nil
}

// RemoveCompletedMedia deletes one completion-stage attachment, matched by
// URL path. Submission-stage attachments are never removed this way, and a
// URL that matches nothing is a no-op success. Only the completed bucket
// is re-synced: the primary status did not change.
func (s *Service) RemoveCompletedMedia(ctx context.Context, id int64, fileURL string) (RemovalResult, error) {
	if strings.TrimSpace(fileURL) == "" {
		return RemovalResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "fileUrl is required", nil)
	}

	item, err := s.GetComplaint(ctx, id)
	if err != nil {
		return RemovalResult{}, err
	}

	target := normalizeMediaURL(fileURL)
	matched := -1
	for i, m := range item.Media {
		if m.Origin != store.OriginCompleted {
			continue
		}
		if normalizeMediaURL(m.URL) == target {
			matched = i
			break
		}
	}
	if matched < 0 {
		return RemovalResult{Complaint: item, Removed: false, Synced: true}, nil
	}

	removed := item.Media[matched]
	remaining := append(append([]store.MediaItem{}, item.Media[:matched]...), item.Media[matched+1:]...)

	// Storage cleanup is best effort; the database list is authoritative.
	if err := s.media.Remove(ctx, removed); err != nil {
		log.Printf("remove-media: delete stored object for %d failed: %v", id, err)
	}

	if err := s.store.UpdateMedia(ctx, id, remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RemovalResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Complaint not found", nil)
		}
		return RemovalResult{}, err
	}

	updated, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return RemovalResult{}, err
	}

	result := RemovalResult{Complaint: updated, Removed: true, Synced: true}
	if err := s.store.UpsertBucket(ctx, store.BucketCompleted, updated); err != nil {
		log.Printf("remove-media: completed bucket sync for %d failed: %v", id, err)
		result.Synced = false
	}
	return result, nil
}

// normalizeMediaURL reduces an attachment URL to its path: scheme and host
// are dropped, the query string is cut, and the leading slash is trimmed.
// "https://cdn.example.com/uploads/a.jpg?v=2" and "/uploads/a.jpg" compare
// equal.
func normalizeMediaURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j:]
		} else {
			s = ""
		}
	}
	if j := strings.Index(s, "?"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimPrefix(s, "/")
}

func (s *Service) mutate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Complaint not found", nil)
	}
	return err
}

func (s *Service) Approve(ctx context.Context, id int64) (store.Complaint, error) {
	if err := s.store.Approve(ctx, id); err != nil {
		return store.Complaint{}, s.mutate(err)
	}
	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return store.Complaint{}, err
	}
	s.indexComplaint(item)
	return item, nil
}

func (s *Service) Reject(ctx context.Context, id int64, reason string) (store.Complaint, error) {
	if err := s.store.Reject(ctx, id, strings.TrimSpace(reason)); err != nil {
		return store.Complaint{}, s.mutate(err)
	}
	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return store.Complaint{}, err
	}
	s.indexComplaint(item)
	return item, nil
}

func (s *Service) Disapprove(ctx context.Context, id int64) (store.Complaint, error) {
	if err := s.store.Disapprove(ctx, id); err != nil {
		return store.Complaint{}, s.mutate(err)
	}
	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return store.Complaint{}, err
	}
	s.indexComplaint(item)
	return item, nil
}

func (s *Service) SetDepartment(ctx context.Context, id int64, department string) (store.Complaint, error) {
	if !scope.ValidDepartment(department) {
		return store.Complaint{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown department", map[string]any{"department": department})
	}
	if err := s.store.SetDepartment(ctx, id, department); err != nil {
		return store.Complaint{}, s.mutate(err)
	}
	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return store.Complaint{}, err
	}
	s.indexComplaint(item)
	return item, nil
}

func (s *Service) ListUnprocessed(ctx context.Context, department string) ([]store.Complaint, error) {
	return s.store.ListUnprocessed(ctx, department)
}

func (s *Service) ListProcessed(ctx context.Context, department string) ([]store.Complaint, error) {
	return s.store.ListProcessed(ctx, department)
}

func (s *Service) ListApproved(ctx context.Context, department string) ([]store.Complaint, error) {
	return s.store.ListApproved(ctx, department)
}

func (s *Service) ListApprovedAll(ctx context.Context) ([]store.Complaint, error) {
	return s.store.ListApprovedAll(ctx)
}

func (s *Service) ListRejected(ctx context.Context) ([]store.Complaint, error) {
	return s.store.ListRejected(ctx)
}

func (s *Service) ListByDepartment(ctx context.Context, department string) ([]store.Complaint, error) {
	if !scope.ValidDepartment(department) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown department", map[string]any{"department": department})
	}
	return s.store.ListByDepartment(ctx, department)
}

func (s *Service) ListBucket(ctx context.Context, bucket, department string) ([]store.BucketRow, error) {
	return s.store.ListBucket(ctx, bucket, department)
}

// Track records a citizen identification event and returns their most
// recent complaint.
func (s *Service) Track(ctx context.Context, phone string) (store.Complaint, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return store.Complaint{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "phone is required", nil)
	}
	if err := s.store.InsertLoginEvent(ctx, phone); err != nil {
		log.Printf("track: login event for %s failed: %v", phone, err)
	}
	item, err := s.store.TrackLatest(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Complaint{}, domainError(http.StatusNotFound, "NOT_FOUND", "No complaints for this phone number", nil)
	}
	return item, err
}

func (s *Service) TrackHistory(ctx context.Context, phone string) ([]store.Complaint, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "phone is required", nil)
	}
	return s.store.TrackHistory(ctx, phone)
}

func (s *Service) RecordLogin(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "phone is required", nil)
	}
	return s.store.InsertLoginEvent(ctx, phone)
}

// StaffLogin checks a department secret and issues a scoped session.
func (s *Service) StaffLogin(ctx context.Context, department, password string) (Session, error) {
	scopes, err := s.staff.Verify(department, password)
	if err != nil {
		if errors.Is(err, staffauth.ErrUnknownDepartment) {
			return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown department", nil)
		}
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid department or password", nil)
	}
	return s.issueSession(ctx, department, scopes)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, data.Department, data.Scopes)
}

func (s *Service) issueSession(ctx context.Context, department string, scopes []string) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:    department,
		Scopes: scopes,
		JTI:    jti,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), department, scopes, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		Department:   department,
		Scopes:       scopes,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:      token,
		Department: claims.Sub,
		Scopes:     claims.Scopes,
		JTI:        claims.JTI,
		ExpiresAt:  time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) Export(ctx context.Context, id int64, format export.Format) (*export.Result, error) {
	item, err := s.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.Export(item, format)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unsupported export format", map[string]any{"format": string(format)})
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export dependency not installed", nil)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
