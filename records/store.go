// Package records persists per-student grade records. Grade records are the
// durable source of truth; skill profiles are always rebuilt from them.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// GradeRecord is one durable grade entry for a student.
type GradeRecord struct {
	StudentID   string    `json:"student_id"`
	SubjectCode string    `json:"subject_code"`
	Grade       string    `json:"grade"`
	Semester    int       `json:"semester,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Store is a SQLite-backed grade record store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS grade_records (
	student_id   TEXT NOT NULL,
	subject_code TEXT NOT NULL,
	grade        TEXT NOT NULL,
	semester     INTEGER NOT NULL DEFAULT 0,
	recorded_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (student_id, subject_code)
);
`

// Open opens (or creates) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open grade records db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init grade records schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert appends or updates a grade record. A record tagged with a lower
// semester never overwrites one tagged with a higher semester; otherwise the
// latest write wins.
func (s *Store) Upsert(ctx context.Context, rec GradeRecord) error {
	if rec.StudentID == "" || rec.SubjectCode == "" || rec.Grade == "" {
		return fmt.Errorf("grade record missing student_id, subject_code or grade")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grade_records (student_id, subject_code, grade, semester, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(student_id, subject_code) DO UPDATE SET
			grade = excluded.grade,
			semester = excluded.semester,
			recorded_at = excluded.recorded_at
		WHERE excluded.semester >= grade_records.semester`,
		rec.StudentID, rec.SubjectCode, rec.Grade, rec.Semester, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("upsert grade record: %w", err)
	}
	return nil
}

// ForStudent returns all grade records for a student, ordered by subject code
// for reproducibility.
func (s *Store) ForStudent(ctx context.Context, studentID string) ([]GradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, subject_code, grade, semester, recorded_at
		FROM grade_records
		WHERE student_id = ?
		ORDER BY subject_code`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("load grade records: %w", err)
	}
	defer rows.Close()

	var out []GradeRecord
	for rows.Next() {
		var rec GradeRecord
		if err := rows.Scan(&rec.StudentID, &rec.SubjectCode, &rec.Grade, &rec.Semester, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan grade record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Grades returns the student's records collapsed to {subject code -> grade}.
func (s *Store) Grades(ctx context.Context, studentID string) (map[string]string, error) {
	recs, err := s.ForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	grades := make(map[string]string, len(recs))
	for _, rec := range recs {
		grades[rec.SubjectCode] = rec.Grade
	}
	return grades, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
