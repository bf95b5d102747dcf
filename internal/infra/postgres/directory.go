package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory reads teacher rosters, classes and guardian links.
type Directory struct {
	db *pgxpool.Pool
}

func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{db: db}
}

func (d *Directory) StudentsOf(ctx context.Context, teacherID string) ([]string, error) {
	const stmt = `SELECT student_id FROM teacher_students WHERE teacher_id = $1 ORDER BY student_id;`
	return d.strings(ctx, stmt, teacherID)
}

// ClassMembers returns no members when the class is not owned by teacherID.
func (d *Directory) ClassMembers(ctx context.Context, teacherID, classID string) ([]string, error) {
	const stmt = `
SELECT m.student_id
FROM class_members m
JOIN classes c ON c.id = m.class_id
WHERE c.id = $1 AND c.teacher_id = $2
ORDER BY m.position;`
	return d.strings(ctx, stmt, classID, teacherID)
}

func (d *Directory) IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error) {
	const stmt = `SELECT EXISTS (SELECT 1 FROM guardian_links WHERE guardian_id = $1 AND student_id = $2);`

	var ok bool
	if err := d.db.QueryRow(ctx, stmt, guardianID, studentID).Scan(&ok); err != nil {
		return false, fmt.Errorf("select guardian link: %w", err)
	}
	return ok, nil
}

// AddStudents associates students with a teacher. Existing links are kept.
func (d *Directory) AddStudents(ctx context.Context, teacherID string, studentIDs ...string) error {
	const stmt = `INSERT INTO teacher_students (teacher_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`

	b := &pgx.Batch{}
	for _, id := range studentIDs {
		b.Queue(stmt, teacherID, id)
	}
	if err := d.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert teacher students: %w", err)
	}
	return nil
}

// AddClass creates or replaces a class owned by teacherID.
func (d *Directory) AddClass(ctx context.Context, teacherID, classID string, members ...string) (err error) {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const (
		upsertClass  = `INSERT INTO classes (id, teacher_id) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id;`
		clearMembers = `DELETE FROM class_members WHERE class_id = $1;`
		insMember    = `INSERT INTO class_members (class_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`
	)

	if _, err = tx.Exec(ctx, upsertClass, classID, teacherID); err != nil {
		return fmt.Errorf("upsert class: %w", err)
	}
	if _, err = tx.Exec(ctx, clearMembers, classID); err != nil {
		return fmt.Errorf("clear class members: %w", err)
	}
	for _, m := range members {
		if _, err = tx.Exec(ctx, insMember, classID, m); err != nil {
			return fmt.Errorf("insert class member: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (d *Directory) LinkGuardian(ctx context.Context, guardianID, studentID string) error {
	const stmt = `INSERT INTO guardian_links (guardian_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`

	if _, err := d.db.Exec(ctx, stmt, guardianID, studentID); err != nil {
		return fmt.Errorf("insert guardian link: %w", err)
	}
	return nil
}

func (d *Directory) strings(ctx context.Context, stmt string, args ...any) ([]string, error) {
	rows, err := d.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}
	return ids, nil
}
