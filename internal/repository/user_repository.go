package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

const userColumns = `id, role, email, password_hash, first_name, last_name, student_number, teacher_number,
        reset_token, token_created_at, created_at, updated_at`

// UserRepository provides access to users, majors, the faculty registry and the audit trail.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByResetToken returns the user holding a reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

// Create inserts a user and returns generated fields.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (role, email, password_hash, first_name, last_name, student_number, teacher_number)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, user.Role, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.StudentNumber, user.TeacherNumber)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the hash and clears any reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, reset_token = NULL, token_created_at = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetResetToken stores a password reset token and when it was issued.
func (r *UserRepository) SetResetToken(ctx context.Context, id int64, token string, issuedAt time.Time) error {
	const query = `UPDATE users SET reset_token = $2, token_created_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token, issuedAt); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// FindFacultyEntry looks up the whitelist by email and teacher number.
func (r *UserRepository) FindFacultyEntry(ctx context.Context, email, teacherNumber string) (*models.FacultyEntry, error) {
	const query = `SELECT id, email, teacher_number, first_name, last_name, active
        FROM faculty_registry WHERE lower(email) = lower($1) AND teacher_number = $2`
	var entry models.FacultyEntry
	if err := r.db.GetContext(ctx, &entry, query, email, teacherNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty entry: %w", err)
	}
	return &entry, nil
}

// ListMajors returns the user's declared majors.
func (r *UserRepository) ListMajors(ctx context.Context, userID int64) ([]models.Major, error) {
	const query = `SELECT m.code, m.name FROM user_majors um JOIN majors m ON m.code = um.major_code
        WHERE um.user_id = $1 ORDER BY m.code`
	var majors []models.Major
	if err := r.db.SelectContext(ctx, &majors, query, userID); err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	return majors, nil
}

// ReplaceMajors swaps the user's majors inside one transaction.
func (r *UserRepository) ReplaceMajors(ctx context.Context, userID int64, codes []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace majors: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_majors WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear majors: %w", err)
	}
	for _, code := range codes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_majors (user_id, major_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, code); err != nil {
			return fmt.Errorf("insert major %s: %w", code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit majors: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
        VALUES (:user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
