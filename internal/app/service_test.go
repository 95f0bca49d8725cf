package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"civicdesk/api/internal/config"
	"civicdesk/api/internal/media"
	"civicdesk/api/internal/session"
	"civicdesk/api/internal/staffauth"
	"civicdesk/api/internal/store"
)

type fakeStore struct {
	insertComplaintFn        func(context.Context, store.Complaint) (int64, error)
	getComplaintFn           func(context.Context, int64) (store.Complaint, error)
	updateStatusFn           func(context.Context, int64, string) error
	updateMediaFn            func(context.Context, int64, []store.MediaItem) error
	setCompletedFn           func(context.Context, int64, []store.MediaItem) error
	upsertBucketFn           func(context.Context, string, store.Complaint) error
	deleteFromOtherBucketsFn func(context.Context, int64, string) error
	rejectFn                 func(context.Context, int64, string) error
	trackLatestFn            func(context.Context, string) (store.Complaint, error)
	insertLoginEventFn       func(context.Context, string) error
	pingFn                   func(context.Context) error
}

func (f *fakeStore) InsertComplaint(ctx context.Context, item store.Complaint) (int64, error) {
	if f.insertComplaintFn != nil {
		return f.insertComplaintFn(ctx, item)
	}
	return 1, nil
}
func (f *fakeStore) GetComplaint(ctx context.Context, id int64) (store.Complaint, error) {
	if f.getComplaintFn != nil {
		return f.getComplaintFn(ctx, id)
	}
	return store.Complaint{ID: id, Status: StatusPending, CreatedAt: time.Now()}, nil
}
func (f *fakeStore) ListUnprocessed(context.Context, string) ([]store.Complaint, error) {
	return nil, nil
}
func (f *fakeStore) ListProcessed(context.Context, string) ([]store.Complaint, error) {
	return nil, nil
}
func (f *fakeStore) ListApproved(context.Context, string) ([]store.Complaint, error) {
	return nil, nil
}
func (f *fakeStore) ListApprovedAll(context.Context) ([]store.Complaint, error) { return nil, nil }
func (f *fakeStore) ListRejected(context.Context) ([]store.Complaint, error)   { return nil, nil }
func (f *fakeStore) ListByDepartment(context.Context, string) ([]store.Complaint, error) {
	return nil, nil
}
func (f *fakeStore) Approve(context.Context, int64) error { return nil }
func (f *fakeStore) Reject(ctx context.Context, id int64, reason string) error {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, id, reason)
	}
	return nil
}
func (f *fakeStore) Disapprove(context.Context, int64) error            { return nil }
func (f *fakeStore) SetDepartment(context.Context, int64, string) error { return nil }
func (f *fakeStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}
func (f *fakeStore) UpdateMedia(ctx context.Context, id int64, items []store.MediaItem) error {
	if f.updateMediaFn != nil {
		return f.updateMediaFn(ctx, id, items)
	}
	return nil
}
func (f *fakeStore) SetCompleted(ctx context.Context, id int64, items []store.MediaItem) error {
	if f.setCompletedFn != nil {
		return f.setCompletedFn(ctx, id, items)
	}
	return nil
}
func (f *fakeStore) UpsertBucket(ctx context.Context, bucket string, item store.Complaint) error {
	if f.upsertBucketFn != nil {
		return f.upsertBucketFn(ctx, bucket, item)
	}
	return nil
}
func (f *fakeStore) DeleteFromOtherBuckets(ctx context.Context, id int64, keep string) error {
	if f.deleteFromOtherBucketsFn != nil {
		return f.deleteFromOtherBucketsFn(ctx, id, keep)
	}
	return nil
}
func (f *fakeStore) ListBucket(context.Context, string, string) ([]store.BucketRow, error) {
	return nil, nil
}
func (f *fakeStore) TrackLatest(ctx context.Context, phone string) (store.Complaint, error) {
	if f.trackLatestFn != nil {
		return f.trackLatestFn(ctx, phone)
	}
	return store.Complaint{}, sql.ErrNoRows
}
func (f *fakeStore) TrackHistory(context.Context, string) ([]store.Complaint, error) {
	return nil, nil
}
func (f *fakeStore) InsertLoginEvent(ctx context.Context, phone string) error {
	if f.insertLoginEventFn != nil {
		return f.insertLoginEventFn(ctx, phone)
	}
	return nil
}
func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type fakeSessions struct {
	saved   map[string]session.TokenData
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]session.TokenData)}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash, department string, scopes []string, _ time.Time) error {
	f.saved[tokenHash] = session.TokenData{Department: department, Scopes: scopes, CreatedAt: time.Now()}
	return nil
}
func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (session.TokenData, error) {
	data, ok := f.saved[tokenHash]
	if !ok {
		return session.TokenData{}, errors.New("token not found or expired")
	}
	return data, nil
}
func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	delete(f.saved, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

type fakeMedia struct {
	storeAllFn func(context.Context, []media.Upload, store.MediaOrigin) ([]store.MediaItem, error)
	removed    []store.MediaItem
	removeErr  error
}

func (f *fakeMedia) Store(ctx context.Context, up media.Upload, origin store.MediaOrigin) (store.MediaItem, error) {
	items, err := f.StoreAll(ctx, []media.Upload{up}, origin)
	if err != nil {
		return store.MediaItem{}, err
	}
	return items[0], nil
}
func (f *fakeMedia) StoreAll(ctx context.Context, ups []media.Upload, origin store.MediaOrigin) ([]store.MediaItem, error) {
	if f.storeAllFn != nil {
		return f.storeAllFn(ctx, ups, origin)
	}
	items := make([]store.MediaItem, 0, len(ups))
	for _, up := range ups {
		items = append(items, store.MediaItem{
			URL:        "/uploads/" + up.Filename,
			Type:       media.Classify(up.Filename, up.ContentType),
			Origin:     origin,
			StorageKey: up.Filename,
		})
	}
	return items, nil
}
func (f *fakeMedia) Remove(_ context.Context, item store.MediaItem) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, item)
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			TokenSecret: "test-secret",
			AccessTTL:   time.Hour,
			RefreshTTL:  24 * time.Hour,
		},
		store:    fs,
		sessions: newFakeSessions(),
		staff:    staffauth.NewService("admin-pass", map[string]string{"health": "health-pass"}),
		media:    &fakeMedia{},
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Submit(context.Background(), SubmitInput{Name: "A", Phone: "090"})

	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 400 || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error: %+v", domainErr)
	}
}

func TestSubmitRejectsHalfCoordinates(t *testing.T) {
	svc := newTestService(&fakeStore{})
	lat := 35.0

	_, err := svc.Submit(context.Background(), SubmitInput{
		Name: "A", Phone: "090", Address: "x", Message: "y",
		Latitude: &lat,
	})

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSubmitMirrorsIntoPendingBucket(t *testing.T) {
	var inserted store.Complaint
	var mirrored string
	fs := &fakeStore{
		insertComplaintFn: func(_ context.Context, item store.Complaint) (int64, error) {
			inserted = item
			return 7, nil
		},
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			inserted.ID = id
			return inserted, nil
		},
		upsertBucketFn: func(_ context.Context, bucket string, item store.Complaint) error {
			mirrored = bucket
			return nil
		},
	}
	svc := newTestService(fs)

	created, err := svc.Submit(context.Background(), SubmitInput{
		Name: "Taro", Phone: "090", Address: "Town", Message: "Broken light",
		Files: []media.Upload{{Filename: "a.jpg", ContentType: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if created.ID != 7 || created.Status != StatusPending {
		t.Fatalf("unexpected complaint: %+v", created)
	}
	if mirrored != store.BucketPending {
		t.Fatalf("mirrored into %q, want pending", mirrored)
	}
	if len(created.Media) != 1 || created.Media[0].Origin != store.OriginSubmission {
		t.Fatalf("unexpected media: %+v", created.Media)
	}
}

func TestSubmitSurvivesBucketFailure(t *testing.T) {
	fs := &fakeStore{
		upsertBucketFn: func(context.Context, string, store.Complaint) error {
			return errors.New("bucket down")
		},
	}
	svc := newTestService(fs)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Name: "A", Phone: "090", Address: "x", Message: "y",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v, want nil despite bucket failure", err)
	}
}

func TestSetStatusRejectsEmptyStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SetStatus(context.Background(), 1, "  ")

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestSetStatusUnmappedStatusSkipsBuckets(t *testing.T) {
	var updatedStatus string
	var bucketTouched bool
	fs := &fakeStore{
		updateStatusFn: func(_ context.Context, _ int64, status string) error {
			updatedStatus = status
			return nil
		},
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			return store.Complaint{ID: id, Status: updatedStatus, CreatedAt: time.Now()}, nil
		},
		upsertBucketFn: func(context.Context, string, store.Complaint) error {
			bucketTouched = true
			return nil
		},
		deleteFromOtherBucketsFn: func(context.Context, int64, string) error {
			bucketTouched = true
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.SetStatus(context.Background(), 99, "ไม่อนุมัติ")
	if err != nil {
		t.Fatalf("SetStatus() error = %v, want primary update for unmapped status", err)
	}
	if updatedStatus != "ไม่อนุมัติ" {
		t.Fatalf("primary row updated to %q", updatedStatus)
	}
	if result.Complaint.Status != "ไม่อนุมัติ" {
		t.Fatalf("unexpected complaint: %+v", result.Complaint)
	}
	if bucketTouched {
		t.Fatal("unmapped status must not touch bucket mirrors")
	}
	if !result.Synced || result.Bucket != "" {
		t.Fatalf("unexpected sync report: %+v", result)
	}
}

func TestSetStatusNotFound(t *testing.T) {
	fs := &fakeStore{
		updateStatusFn: func(context.Context, int64, string) error { return sql.ErrNoRows },
	}
	svc := newTestService(fs)

	_, err := svc.SetStatus(context.Background(), 99, StatusInProgress)

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestSetStatusSyncsBuckets(t *testing.T) {
	var upserted string
	var kept string
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			return store.Complaint{ID: id, Status: StatusInProgress, CreatedAt: time.Now()}, nil
		},
		upsertBucketFn: func(_ context.Context, bucket string, _ store.Complaint) error {
			upserted = bucket
			return nil
		},
		deleteFromOtherBucketsFn: func(_ context.Context, _ int64, keep string) error {
			kept = keep
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.SetStatus(context.Background(), 5, StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if !result.Synced || result.Bucket != store.BucketInProgress {
		t.Fatalf("unexpected result: %+v", result)
	}
	if upserted != store.BucketInProgress {
		t.Fatalf("upserted into %q", upserted)
	}
	if kept != store.BucketInProgress {
		t.Fatalf("cleanup kept %q", kept)
	}
}

func TestSetStatusReportsDegradedSync(t *testing.T) {
	var cleanupCalled bool
	fs := &fakeStore{
		upsertBucketFn: func(context.Context, string, store.Complaint) error {
			return errors.New("mirror down")
		},
		deleteFromOtherBucketsFn: func(context.Context, int64, string) error {
			cleanupCalled = true
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.SetStatus(context.Background(), 5, StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus() error = %v, want nil on mirror failure", err)
	}
	if result.Synced {
		t.Fatal("expected Synced=false")
	}
	if cleanupCalled {
		t.Fatal("cleanup should not run after failed upsert")
	}
}

func TestRejectLeavesBucketsAlone(t *testing.T) {
	var bucketTouched bool
	fs := &fakeStore{
		upsertBucketFn: func(context.Context, string, store.Complaint) error {
			bucketTouched = true
			return nil
		},
		deleteFromOtherBucketsFn: func(context.Context, int64, string) error {
			bucketTouched = true
			return nil
		},
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			return store.Complaint{ID: id, Status: StatusRejected, CreatedAt: time.Now()}, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.Reject(context.Background(), 3, "duplicate"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if bucketTouched {
		t.Fatal("reject must not touch bucket mirrors")
	}
}

func TestCompleteWithMediaMergesInOrder(t *testing.T) {
	existing := []store.MediaItem{
		{URL: "/uploads/before.jpg", Type: store.MediaImage, Origin: store.OriginSubmission},
	}
	var written []store.MediaItem
	completedAt := time.Now()
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			if written != nil {
				return store.Complaint{
					ID: id, Status: StatusCompleted, Media: written,
					CreatedAt: time.Now(), CompletedAt: &completedAt,
				}, nil
			}
			return store.Complaint{ID: id, Status: StatusInProgress, Media: existing, CreatedAt: time.Now()}, nil
		},
		setCompletedFn: func(_ context.Context, _ int64, items []store.MediaItem) error {
			written = items
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.CompleteWithMedia(context.Background(), 9, []media.Upload{
		{Filename: "after.jpg", ContentType: "image/jpeg"},
	})
	if err != nil {
		t.Fatalf("CompleteWithMedia() error = %v", err)
	}
	if result.Added != 1 {
		t.Fatalf("Added = %d, want 1", result.Added)
	}
	if len(written) != 2 {
		t.Fatalf("wrote %d media items, want 2", len(written))
	}
	if written[0].URL != "/uploads/before.jpg" || written[0].Origin != store.OriginSubmission {
		t.Fatalf("existing media not preserved first: %+v", written[0])
	}
	if written[1].Origin != store.OriginCompleted {
		t.Fatalf("new media not tagged completed: %+v", written[1])
	}
}

func TestCompleteWithMediaAbortsOnStorageFailure(t *testing.T) {
	var completed bool
	fs := &fakeStore{
		setCompletedFn: func(context.Context, int64, []store.MediaItem) error {
			completed = true
			return nil
		},
	}
	svc := newTestService(fs)
	svc.media = &fakeMedia{
		storeAllFn: func(context.Context, []media.Upload, store.MediaOrigin) ([]store.MediaItem, error) {
			return nil, errors.New("disk full")
		},
	}

	_, err := svc.CompleteWithMedia(context.Background(), 9, []media.Upload{{Filename: "x.jpg"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if completed {
		t.Fatal("complaint must not be completed after storage failure")
	}
}

func TestRemoveCompletedMediaMatchesNormalizedURL(t *testing.T) {
	items := []store.MediaItem{
		{URL: "/uploads/before.jpg", Origin: store.OriginSubmission},
		{URL: "https://cdn.example.com/uploads/after.jpg?v=2", Origin: store.OriginCompleted, StorageKey: "after.jpg"},
	}
	var written []store.MediaItem
	var mirrored string
	var cleanupCalled bool
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			current := items
			if written != nil {
				current = written
			}
			return store.Complaint{ID: id, Status: StatusCompleted, Media: current, CreatedAt: time.Now()}, nil
		},
		updateMediaFn: func(_ context.Context, _ int64, media []store.MediaItem) error {
			written = media
			return nil
		},
		upsertBucketFn: func(_ context.Context, bucket string, _ store.Complaint) error {
			mirrored = bucket
			return nil
		},
		deleteFromOtherBucketsFn: func(context.Context, int64, string) error {
			cleanupCalled = true
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.RemoveCompletedMedia(context.Background(), 4, "/uploads/after.jpg")
	if err != nil {
		t.Fatalf("RemoveCompletedMedia() error = %v", err)
	}
	if !result.Removed {
		t.Fatal("expected Removed=true")
	}
	if len(written) != 1 || written[0].URL != "/uploads/before.jpg" {
		t.Fatalf("unexpected remaining media: %+v", written)
	}
	if mirrored != store.BucketCompleted {
		t.Fatalf("mirrored %q, want completed bucket", mirrored)
	}
	if cleanupCalled {
		t.Fatal("removal must not touch other buckets")
	}
}

func TestRemoveCompletedMediaIgnoresSubmissionOrigin(t *testing.T) {
	items := []store.MediaItem{
		{URL: "/uploads/shared.jpg", Origin: store.OriginSubmission},
	}
	var updated bool
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			return store.Complaint{ID: id, Media: items, CreatedAt: time.Now()}, nil
		},
		updateMediaFn: func(context.Context, int64, []store.MediaItem) error {
			updated = true
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.RemoveCompletedMedia(context.Background(), 4, "/uploads/shared.jpg")
	if err != nil {
		t.Fatalf("RemoveCompletedMedia() error = %v", err)
	}
	if result.Removed {
		t.Fatal("submission-origin media must never be removed")
	}
	if updated {
		t.Fatal("media list must stay untouched on no-op")
	}
}

func TestRemoveCompletedMediaRemovesFirstMatchOnly(t *testing.T) {
	items := []store.MediaItem{
		{URL: "/uploads/dup.jpg", Origin: store.OriginCompleted},
		{URL: "/uploads/dup.jpg", Origin: store.OriginCompleted},
	}
	var written []store.MediaItem
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			current := items
			if written != nil {
				current = written
			}
			return store.Complaint{ID: id, Media: current, CreatedAt: time.Now()}, nil
		},
		updateMediaFn: func(_ context.Context, _ int64, media []store.MediaItem) error {
			written = media
			return nil
		},
	}
	svc := newTestService(fs)

	result, err := svc.RemoveCompletedMedia(context.Background(), 4, "uploads/dup.jpg")
	if err != nil {
		t.Fatalf("RemoveCompletedMedia() error = %v", err)
	}
	if !result.Removed {
		t.Fatal("expected Removed=true")
	}
	if len(written) != 1 {
		t.Fatalf("remaining media = %d, want 1", len(written))
	}
}

func TestRemoveCompletedMediaSecondCallIsNoOp(t *testing.T) {
	items := []store.MediaItem{
		{URL: "/uploads/proof.jpg", Origin: store.OriginCompleted, StorageKey: "proof.jpg"},
	}
	var written []store.MediaItem
	var updates int
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			current := items
			if written != nil {
				current = written
			}
			return store.Complaint{ID: id, Status: StatusCompleted, Media: current, CreatedAt: time.Now()}, nil
		},
		updateMediaFn: func(_ context.Context, _ int64, media []store.MediaItem) error {
			updates++
			written = media
			return nil
		},
	}
	svc := newTestService(fs)

	first, err := svc.RemoveCompletedMedia(context.Background(), 4, "/uploads/proof.jpg")
	if err != nil {
		t.Fatalf("first RemoveCompletedMedia() error = %v", err)
	}
	if !first.Removed {
		t.Fatal("first call should remove the attachment")
	}

	second, err := svc.RemoveCompletedMedia(context.Background(), 4, "/uploads/proof.jpg")
	if err != nil {
		t.Fatalf("second RemoveCompletedMedia() error = %v, want no-op success", err)
	}
	if second.Removed {
		t.Fatal("second call must report Removed=false")
	}
	if !second.Synced {
		t.Fatal("no-op removal is still a synced success")
	}
	if updates != 1 {
		t.Fatalf("media list written %d times, want 1", updates)
	}
}

func TestRemoveCompletedMediaSurvivesStorageError(t *testing.T) {
	items := []store.MediaItem{
		{URL: "/uploads/gone.jpg", Origin: store.OriginCompleted, StorageKey: "gone.jpg"},
	}
	var updated bool
	fs := &fakeStore{
		getComplaintFn: func(_ context.Context, id int64) (store.Complaint, error) {
			return store.Complaint{ID: id, Media: items, CreatedAt: time.Now()}, nil
		},
		updateMediaFn: func(context.Context, int64, []store.MediaItem) error {
			updated = true
			return nil
		},
	}
	svc := newTestService(fs)
	svc.media = &fakeMedia{removeErr: errors.New("object gone")}

	result, err := svc.RemoveCompletedMedia(context.Background(), 4, "https://cdn.example.com/uploads/gone.jpg")
	if err != nil {
		t.Fatalf("RemoveCompletedMedia() error = %v", err)
	}
	if !result.Removed || !updated {
		t.Fatal("database removal must proceed despite storage error")
	}
}

func TestNormalizeMediaURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/uploads/a.jpg", "uploads/a.jpg"},
		{"uploads/a.jpg", "uploads/a.jpg"},
		{"https://cdn.example.com/uploads/a.jpg", "uploads/a.jpg"},
		{"http://host:9000/bucket/a.jpg?X-Amz-Signature=abc", "bucket/a.jpg"},
		{"/uploads/a.jpg?v=2", "uploads/a.jpg"},
		{"https://host.example.com", ""},
	}
	for _, tt := range tests {
		if got := normalizeMediaURL(tt.in); got != tt.want {
			t.Errorf("normalizeMediaURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrackRecordsLoginEvent(t *testing.T) {
	var loggedPhone string
	fs := &fakeStore{
		insertLoginEventFn: func(_ context.Context, phone string) error {
			loggedPhone = phone
			return nil
		},
		trackLatestFn: func(_ context.Context, phone string) (store.Complaint, error) {
			return store.Complaint{ID: 1, Phone: phone, CreatedAt: time.Now()}, nil
		},
	}
	svc := newTestService(fs)

	item, err := svc.Track(context.Background(), " 090-1111-2222 ")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if loggedPhone != "090-1111-2222" {
		t.Fatalf("login event phone = %q", loggedPhone)
	}
	if item.ID != 1 {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestTrackUnknownPhone(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Track(context.Background(), "000")

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestStaffLoginIssuesScopedSession(t *testing.T) {
	svc := newTestService(&fakeStore{})

	sess, err := svc.StaffLogin(context.Background(), "health", "health-pass")
	if err != nil {
		t.Fatalf("StaffLogin() error = %v", err)
	}
	if sess.Department != "health" {
		t.Fatalf("department = %q", sess.Department)
	}
	if len(sess.Scopes) != 1 || sess.Scopes[0] != "health" {
		t.Fatalf("scopes = %v", sess.Scopes)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	parsed, err := svc.SessionFromToken(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if parsed.Department != "health" {
		t.Fatalf("parsed department = %q", parsed.Department)
	}
}

func TestStaffLoginRejectsBadPassword(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.StaffLogin(context.Background(), "health", "wrong")

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newTestService(&fakeStore{})

	first, err := svc.StaffLogin(context.Background(), "central", "admin-pass")
	if err != nil {
		t.Fatalf("StaffLogin() error = %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// Old refresh token is revoked
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err == nil {
		t.Fatal("expected error reusing revoked refresh token")
	}
}
