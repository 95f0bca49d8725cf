package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Bucket table names. Every bucket-touching method resolves table names
// through this set, never from caller input.
const (
	BucketPending    = "pending"
	BucketInProgress = "inprogress"
	BucketCompleted  = "completed"
)

var bucketTables = []string{BucketPending, BucketInProgress, BucketCompleted}

func validBucket(name string) bool {
	for _, t := range bucketTables {
		if t == name {
			return true
		}
	}
	return false
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// encodeMedia serializes the media list for the JSONB column. A nil list
// is stored as an empty array, never SQL NULL.
func encodeMedia(items []MediaItem) []byte {
	if items == nil {
		items = []MediaItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// decodeMedia tolerates malformed or missing stored values by returning an
// empty list.
func decodeMedia(raw []byte) []MediaItem {
	if len(raw) == 0 {
		return []MediaItem{}
	}
	var items []MediaItem
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []MediaItem{}
	}
	return items
}

const complaintColumns = `id, name, phone, address, category, message, latitude, longitude, media, department, status, approved, processed, reject_reason, created_at, completed_at`

// Bucket tables carry original_id instead of id.
const bucketColumns = `original_id, name, phone, address, category, message, latitude, longitude, media, department, status, approved, processed, reject_reason, created_at, completed_at, copied_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (Complaint, error) {
	var item Complaint
	var media []byte
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Phone,
		&item.Address,
		&item.Category,
		&item.Message,
		&item.Latitude,
		&item.Longitude,
		&media,
		&item.Department,
		&item.Status,
		&item.Approved,
		&item.Processed,
		&item.RejectReason,
		&item.CreatedAt,
		&item.CompletedAt,
	)
	if err != nil {
		return Complaint{}, err
	}
	item.Media = decodeMedia(media)
	return item, nil
}

func (s *PostgresStore) collectComplaints(ctx context.Context, query string, args ...any) ([]Complaint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	items := make([]Complaint, 0)
	for rows.Next() {
		item, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertComplaint(ctx context.Context, item Complaint) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO requests (name, phone, address, category, message, latitude, longitude, media, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, item.Name, item.Phone, item.Address, item.Category, item.Message, item.Latitude, item.Longitude, encodeMedia(item.Media), item.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert complaint: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetComplaint(ctx context.Context, id int64) (Complaint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM requests WHERE id=$1`, id)
	return scanComplaint(row)
}

func (s *PostgresStore) ListUnprocessed(ctx context.Context, department string) ([]Complaint, error) {
	if department != "" {
		return s.collectComplaints(ctx, `
			SELECT `+complaintColumns+` FROM requests
			WHERE processed = false AND department = $1
			ORDER BY id DESC
		`, department)
	}
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE processed = false
		ORDER BY id DESC
	`)
}

func (s *PostgresStore) ListProcessed(ctx context.Context, department string) ([]Complaint, error) {
	if department != "" {
		return s.collectComplaints(ctx, `
			SELECT `+complaintColumns+` FROM requests
			WHERE processed = true AND department = $1
			ORDER BY id DESC
		`, department)
	}
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE processed = true
		ORDER BY id DESC
	`)
}

func (s *PostgresStore) ListApproved(ctx context.Context, department string) ([]Complaint, error) {
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE department = $1 AND approved = true AND processed = true
		ORDER BY id DESC
	`, department)
}

func (s *PostgresStore) ListApprovedAll(ctx context.Context) ([]Complaint, error) {
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE approved = true
		ORDER BY id DESC
	`)
}

func (s *PostgresStore) ListRejected(ctx context.Context) ([]Complaint, error) {
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE processed = true AND approved = false
		ORDER BY id DESC
	`)
}

func (s *PostgresStore) ListByDepartment(ctx context.Context, department string) ([]Complaint, error) {
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE department = $1
		ORDER BY id DESC
	`, department)
}

func (s *PostgresStore) mutateOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) Approve(ctx context.Context, id int64) error {
	err := s.mutateOne(ctx, `UPDATE requests SET approved = true, processed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("approve complaint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Reject(ctx context.Context, id int64, reason string) error {
	err := s.mutateOne(ctx, `
		UPDATE requests
		SET status = 'rejected', reject_reason = $2, approved = false, processed = true
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("reject complaint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Disapprove(ctx context.Context, id int64) error {
	err := s.mutateOne(ctx, `UPDATE requests SET approved = false, processed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("disapprove complaint: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetDepartment(ctx context.Context, id int64, department string) error {
	err := s.mutateOne(ctx, `UPDATE requests SET department = $2 WHERE id = $1`, id, department)
	if err != nil {
		return fmt.Errorf("set department: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	err := s.mutateOne(ctx, `UPDATE requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMedia(ctx context.Context, id int64, media []MediaItem) error {
	err := s.mutateOne(ctx, `UPDATE requests SET media = $2 WHERE id = $1`, id, encodeMedia(media))
	if err != nil {
		return fmt.Errorf("update media: %w", err)
	}
	return nil
}

// SetCompleted writes the merged media list, moves the complaint to the
// completed status and stamps completed_at, all in one statement.
func (s *PostgresStore) SetCompleted(ctx context.Context, id int64, media []MediaItem) error {
	err := s.mutateOne(ctx, `
		UPDATE requests
		SET status = 'completed', media = $2, completed_at = NOW()
		WHERE id = $1
	`, id, encodeMedia(media))
	if err != nil {
		return fmt.Errorf("complete complaint: %w", err)
	}
	return nil
}

// UpsertBucket copies the full complaint row into the named bucket table,
// overwriting any previous copy for the same original_id and stamping
// copied_at.
func (s *PostgresStore) UpsertBucket(ctx context.Context, bucket string, item Complaint) error {
	if !validBucket(bucket) {
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	query := `
		INSERT INTO ` + bucket + `
			(original_id, name, phone, address, category, message,
			 latitude, longitude, media, department, status,
			 approved, processed, reject_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (original_id) DO UPDATE SET
			name=EXCLUDED.name,
			phone=EXCLUDED.phone,
			address=EXCLUDED.address,
			category=EXCLUDED.category,
			message=EXCLUDED.message,
			latitude=EXCLUDED.latitude,
			longitude=EXCLUDED.longitude,
			media=EXCLUDED.media,
			department=EXCLUDED.department,
			status=EXCLUDED.status,
			approved=EXCLUDED.approved,
			processed=EXCLUDED.processed,
			reject_reason=EXCLUDED.reject_reason,
			created_at=EXCLUDED.created_at,
			completed_at=EXCLUDED.completed_at,
			copied_at=NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Phone, item.Address, item.Category, item.Message,
		item.Latitude, item.Longitude, encodeMedia(item.Media), item.Department, item.Status,
		item.Approved, item.Processed, item.RejectReason, item.CreatedAt, item.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", bucket, err)
	}
	return nil
}

// DeleteFromOtherBuckets removes stale copies of original_id from every
// bucket except keep. Each delete is an independent statement.
func (s *PostgresStore) DeleteFromOtherBuckets(ctx context.Context, originalID int64, keep string) error {
	for _, table := range bucketTables {
		if table == keep {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE original_id = $1`, originalID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListBucket(ctx context.Context, bucket, department string) ([]BucketRow, error) {
	if !validBucket(bucket) {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	query := `
		SELECT ` + bucketColumns + `
		FROM ` + bucket
	args := []any{}
	if department != "" {
		query += ` WHERE department = $1`
		args = append(args, department)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer rows.Close()

	items := make([]BucketRow, 0)
	for rows.Next() {
		var item BucketRow
		var media []byte
		err := rows.Scan(
			&item.OriginalID,
			&item.Name,
			&item.Phone,
			&item.Address,
			&item.Category,
			&item.Message,
			&item.Latitude,
			&item.Longitude,
			&media,
			&item.Department,
			&item.Status,
			&item.Approved,
			&item.Processed,
			&item.RejectReason,
			&item.CreatedAt,
			&item.CompletedAt,
			&item.CopiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", bucket, err)
		}
		item.ID = item.OriginalID
		item.Media = decodeMedia(media)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", bucket, err)
	}
	return items, nil
}

func (s *PostgresStore) TrackLatest(ctx context.Context, phone string) (Complaint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phone)
	return scanComplaint(row)
}

func (s *PostgresStore) TrackHistory(ctx context.Context, phone string) ([]Complaint, error) {
	return s.collectComplaints(ctx, `
		SELECT `+complaintColumns+` FROM requests
		WHERE phone = $1
		ORDER BY created_at DESC
	`, phone)
}

func (s *PostgresStore) InsertLoginEvent(ctx context.Context, phone string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_logins (phone) VALUES ($1)`, phone)
	if err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}
