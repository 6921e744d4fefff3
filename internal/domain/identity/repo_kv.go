package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinicops/clinic/internal/platform/kv"
)

// Table names in the embedded store. Other domains read these tables to
// join display names.
const (
	TableUsers    = "users"
	TableAdmins   = "admins"
	TableDoctors  = "doctors"
	TablePatients = "patients"

	usernameIndex = "users.username"
)

// userRecord is the stored form of a User, including the password hash.
type userRecord struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	LinkedID     *int64    `json:"linked_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type repoKV struct {
	store *kv.Store
	now   func() time.Time
}

func NewRepoKV(store *kv.Store) Repository {
	return &repoKV{store: store, now: time.Now}
}

func (r *repoKV) CreateUser(ctx context.Context, u *User) error {
	id, err := r.store.NextID(ctx, TableUsers)
	if err != nil {
		return err
	}
	if err := r.store.PutUnique(ctx, usernameIndex, u.Username, id); err != nil {
		if errors.Is(err, kv.ErrKeyExists) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("claim username: %w", err)
	}

	u.ID = id
	u.CreatedAt = r.now().UTC()
	return r.putUser(ctx, u)
}

func (r *repoKV) putUser(ctx context.Context, u *User) error {
	rec := userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		LinkedID:     u.LinkedID,
		CreatedAt:    u.CreatedAt,
	}
	if err := r.store.Put(ctx, TableUsers, u.ID, rec); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (r *repoKV) getUser(ctx context.Context, id int64) (*User, error) {
	var rec userRecord
	if err := r.store.Get(ctx, TableUsers, id, &rec); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		LinkedID:     rec.LinkedID,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (r *repoKV) SetLinkedID(ctx context.Context, userID, linkedID int64) error {
	u, err := r.getUser(ctx, userID)
	if err != nil {
		return err
	}
	u.LinkedID = &linkedID
	return r.putUser(ctx, u)
}

func (r *repoKV) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	id, err := r.store.Lookup(ctx, usernameIndex, username)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.getUser(ctx, id)
}

func profileTable(p Profile) (string, error) {
	switch p.(type) {
	case *AdminProfile:
		return TableAdmins, nil
	case *DoctorProfile:
		return TableDoctors, nil
	case *PatientProfile:
		return TablePatients, nil
	}
	return "", ErrInvalidRole
}

func (r *repoKV) CreateProfile(ctx context.Context, p Profile) error {
	table, err := profileTable(p)
	if err != nil {
		return err
	}
	id, err := r.store.NextID(ctx, table)
	if err != nil {
		return err
	}
	p.base().ID = id
	if err := r.store.Put(ctx, table, id, p); err != nil {
		return fmt.Errorf("insert %s profile: %w", p.Role(), err)
	}
	return nil
}

// scanTable decodes every row of table in id order.
func scanTable[T any](ctx context.Context, store *kv.Store, table string) ([]T, error) {
	var out []T
	err := store.Scan(ctx, table, func(raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode %s row: %w", table, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (r *repoKV) ListAdmins(ctx context.Context) ([]AdminView, error) {
	admins, err := scanTable[AdminProfile](ctx, r.store, TableAdmins)
	if err != nil {
		return nil, err
	}
	out := make([]AdminView, 0, len(admins))
	for _, a := range admins {
		u, err := r.getUser(ctx, a.UserID)
		if errors.Is(err, ErrUserNotFound) {
			// Inner join: admins without a user are not listed.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, AdminView{AdminProfile: a, Username: u.Username, Role: u.Role})
	}
	return out, nil
}

func (r *repoKV) ListDoctors(ctx context.Context) ([]DoctorProfile, error) {
	return scanTable[DoctorProfile](ctx, r.store, TableDoctors)
}

func (r *repoKV) ListPatients(ctx context.Context) ([]PatientProfile, error) {
	return scanTable[PatientProfile](ctx, r.store, TablePatients)
}

func (r *repoKV) GetDoctor(ctx context.Context, id int64) (*DoctorProfile, error) {
	var d DoctorProfile
	if err := r.store.Get(ctx, TableDoctors, id, &d); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repoKV) UpdateDoctorFee(ctx context.Context, id int64, fee float64) error {
	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		d, err := r.GetDoctor(ctx, id)
		if err != nil {
			return err
		}
		d.Fees = fee
		return r.store.Put(ctx, TableDoctors, id, d)
	})
}
