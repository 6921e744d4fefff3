package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if db.IsUniqueViolation(err, "users_username_key") {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repoPG) SetLinkedID(ctx context.Context, userID, linkedID int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET linked_id = $1 WHERE id = $2`, linkedID, userID)
	if err != nil {
		return fmt.Errorf("link user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repoPG) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	var role string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, username, password_hash, role, linked_id, created_at
		FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.LinkedID, &u.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *repoPG) CreateProfile(ctx context.Context, p Profile) error {
	var row pgx.Row
	switch v := p.(type) {
	case *AdminProfile:
		row = r.conn(ctx).QueryRow(ctx, `
			INSERT INTO admins (name, contact, user_id)
			VALUES ($1, $2, $3) RETURNING id`,
			v.Name, v.Contact, v.UserID)
	case *DoctorProfile:
		row = r.conn(ctx).QueryRow(ctx, `
			INSERT INTO doctors (name, specialization, experience, contact, fees, user_id)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			v.Name, v.Specialization, v.Experience, v.Contact, v.Fees, v.UserID)
	case *PatientProfile:
		row = r.conn(ctx).QueryRow(ctx, `
			INSERT INTO patients (name, age, gender, contact, address, user_id)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			v.Name, v.Age, v.Gender, v.Contact, v.Address, v.UserID)
	default:
		return ErrInvalidRole
	}
	if err := row.Scan(&p.base().ID); err != nil {
		return fmt.Errorf("insert %s profile: %w", p.Role(), err)
	}
	return nil
}

func (r *repoPG) ListAdmins(ctx context.Context) ([]AdminView, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.user_id, a.name, COALESCE(a.contact, ''), u.username, u.role
		FROM admins a JOIN users u ON a.user_id = u.id
		ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []AdminView
	for rows.Next() {
		var v AdminView
		var role string
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.Contact, &v.Username, &role); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		v.Role = Role(role)
		out = append(out, v)
	}
	return out, rows.Err()
}

const doctorCols = `id, user_id, name, COALESCE(specialization, ''), experience, COALESCE(contact, ''), fees`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Experience, &d.Contact, &d.Fees); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) ListDoctors(ctx context.Context) ([]DoctorProfile, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []DoctorProfile
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *repoPG) ListPatients(ctx context.Context) ([]PatientProfile, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, name, age, COALESCE(gender, ''), COALESCE(contact, ''), COALESCE(address, '')
		FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []PatientProfile
	for rows.Next() {
		var p PatientProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Age, &p.Gender, &p.Contact, &p.Address); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) GetDoctor(ctx context.Context, id int64) (*DoctorProfile, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor %d: %w", id, err)
	}
	return d, nil
}

func (r *repoPG) UpdateDoctorFee(ctx context.Context, id int64, fee float64) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE doctors SET fees = $1 WHERE id = $2`, fee, id)
	if err != nil {
		return fmt.Errorf("update doctor fee %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
