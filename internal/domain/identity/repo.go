package identity

import (
	"context"
)

// Repository persists users and their profiles. Writes made with a context
// from Transactor.WithinTx join that transaction.
type Repository interface {
	// CreateUser inserts u and sets its ID and CreatedAt. A duplicate
	// username fails with ErrUsernameTaken.
	CreateUser(ctx context.Context, u *User) error
	SetLinkedID(ctx context.Context, userID, linkedID int64) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateProfile inserts p into the table of its role and sets its ID.
	CreateProfile(ctx context.Context, p Profile) error

	ListAdmins(ctx context.Context) ([]AdminView, error)
	ListDoctors(ctx context.Context) ([]DoctorProfile, error)
	ListPatients(ctx context.Context) ([]PatientProfile, error)

	GetDoctor(ctx context.Context, id int64) (*DoctorProfile, error)
	UpdateDoctorFee(ctx context.Context, id int64, fee float64) error
}
