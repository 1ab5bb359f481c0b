package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/edupanel/apiserver/types"
)

// ExtensionRepository handles persistence for role extension rows.
// A row's existence is the authoritative approval flag, so inserts use
// ON CONFLICT DO NOTHING: the second writer of a double-approve race
// observes zero affected rows and treats the call as already done.
type ExtensionRepository struct {
	db *sql.DB
}

func NewExtensionRepository(db *sql.DB) *ExtensionRepository {
	return &ExtensionRepository{db: db}
}

// Exists reports whether the account has a role extension row in the
// table matching its role.
func (r *ExtensionRepository) Exists(ctx context.Context, accountID string, role types.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM student_profiles WHERE account_id = $1)`
	if role == types.RoleFaculty || role == types.RoleHOD {
		query = `SELECT EXISTS (SELECT 1 FROM faculty_profiles WHERE account_id = $1)`
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InsertStudent creates the student extension row. Returns false when
// the row already existed.
func (r *ExtensionRepository) InsertStudent(ctx context.Context, profile types.StudentProfile) (bool, error) {
	profile.CreatedAt = time.Now()

	const query = `
		INSERT INTO student_profiles
			(account_id, student_id, semester, batch, guardian_name, guardian_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO NOTHING`
	result, err := r.db.ExecContext(
		ctx,
		query,
		profile.AccountID,
		profile.StudentID,
		profile.Semester,
		profile.Batch,
		profile.GuardianName,
		profile.GuardianPhone,
		profile.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertFaculty creates the faculty extension row. Returns false when
// the row already existed.
func (r *ExtensionRepository) InsertFaculty(ctx context.Context, profile types.FacultyProfile) (bool, error) {
	profile.CreatedAt = time.Now()

	const query = `
		INSERT INTO faculty_profiles
			(account_id, employee_id, designation, qualification, experience_years, specialization, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO NOTHING`
	result, err := r.db.ExecContext(
		ctx,
		query,
		profile.AccountID,
		profile.EmployeeID,
		profile.Designation,
		profile.Qualification,
		profile.ExperienceYears,
		profile.Specialization,
		profile.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetStudent returns the student extension row.
func (r *ExtensionRepository) GetStudent(ctx context.Context, accountID string) (types.StudentProfile, error) {
	const query = `
		SELECT account_id, student_id, semester, batch, guardian_name, guardian_phone, created_at
		FROM student_profiles
		WHERE account_id = $1`
	var profile types.StudentProfile
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&profile.AccountID,
		&profile.StudentID,
		&profile.Semester,
		&profile.Batch,
		&profile.GuardianName,
		&profile.GuardianPhone,
		&profile.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.StudentProfile{}, ErrNotFound
		}
		return types.StudentProfile{}, err
	}
	return profile, nil
}

// GetFaculty returns the faculty extension row.
func (r *ExtensionRepository) GetFaculty(ctx context.Context, accountID string) (types.FacultyProfile, error) {
	const query = `
		SELECT account_id, employee_id, designation, qualification, experience_years, specialization, created_at
		FROM faculty_profiles
		WHERE account_id = $1`
	var profile types.FacultyProfile
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&profile.AccountID,
		&profile.EmployeeID,
		&profile.Designation,
		&profile.Qualification,
		&profile.ExperienceYears,
		&profile.Specialization,
		&profile.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.FacultyProfile{}, ErrNotFound
		}
		return types.FacultyProfile{}, err
	}
	return profile, nil
}
