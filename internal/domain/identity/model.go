package identity

import (
	"strings"
	"time"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

// Role is the closed set of principal kinds.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// DefaultDoctorFee applies when a doctor signs up without a fee.
const DefaultDoctorFee = 500.0

var (
	ErrInvalidRole        = apperr.New(apperr.KindInvalidRole, "Invalid role specified")
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "Invalid credentials")
	ErrUsernameTaken      = apperr.New(apperr.KindConflict, "username already exists")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
	ErrDoctorNotFound     = apperr.New(apperr.KindNotFound, "doctor not found")
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return r, nil
	}
	return "", ErrInvalidRole
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	LinkedID     *int64    `json:"linked_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the role-specific half of an identity. The variants are
// AdminProfile, DoctorProfile and PatientProfile; no other type can
// implement it.
type Profile interface {
	Role() Role
	base() *ProfileBase
}

// ProfileBase holds the fields every profile carries.
type ProfileBase struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (b *ProfileBase) base() *ProfileBase { return b }

type AdminProfile struct {
	ProfileBase
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

func (*AdminProfile) Role() Role { return RoleAdmin }

type DoctorProfile struct {
	ProfileBase
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Experience     *int    `json:"experience"`
	Contact        string  `json:"contact"`
	Fees           float64 `json:"fees"`
}

func (*DoctorProfile) Role() Role { return RoleDoctor }

type PatientProfile struct {
	ProfileBase
	Name    string `json:"name"`
	Age     *int   `json:"age"`
	Gender  string `json:"gender"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

func (*PatientProfile) Role() Role { return RolePatient }

// AdminView is an admin profile joined with its user's username and role.
type AdminView struct {
	AdminProfile
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Credentials struct {
	Username string
	Password string
}

type SignupResult struct {
	UserID   int64 `json:"id"`
	Role     Role  `json:"role"`
	LinkedID int64 `json:"linked_id"`
}

// SignupRequest is the flat signup body. Only the attributes of the chosen
// role are used.
type SignupRequest struct {
	Username       string   `json:"username"`
	Password       string   `json:"password"`
	Role           string   `json:"role"`
	Name           string   `json:"name"`
	Contact        string   `json:"contact"`
	Age            *int     `json:"age"`
	Gender         string   `json:"gender"`
	Address        string   `json:"address"`
	Specialization string   `json:"specialization"`
	Experience     *int     `json:"experience"`
	Fees           *float64 `json:"fees"`
}

func (r SignupRequest) Credentials() Credentials {
	return Credentials{Username: strings.TrimSpace(r.Username), Password: r.Password}
}

// Profile builds the profile variant for the requested role.
func (r SignupRequest) Profile() (Profile, error) {
	role, err := ParseRole(r.Role)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(r.Name)

	switch role {
	case RoleAdmin:
		return &AdminProfile{Name: name, Contact: r.Contact}, nil
	case RoleDoctor:
		fees := DefaultDoctorFee
		if r.Fees != nil && *r.Fees != 0 {
			fees = *r.Fees
		}
		return &DoctorProfile{
			Name:           name,
			Specialization: r.Specialization,
			Experience:     r.Experience,
			Contact:        r.Contact,
			Fees:           fees,
		}, nil
	default:
		return &PatientProfile{
			Name:    name,
			Age:     r.Age,
			Gender:  r.Gender,
			Contact: r.Contact,
			Address: r.Address,
		}, nil
	}
}

func validateProfile(p Profile) error {
	var name string
	switch v := p.(type) {
	case *AdminProfile:
		name = v.Name
	case *DoctorProfile:
		name = v.Name
		if v.Fees < 0 {
			return apperr.Validation("fees must not be negative")
		}
		if v.Experience != nil && *v.Experience < 0 {
			return apperr.Validation("experience must not be negative")
		}
	case *PatientProfile:
		name = v.Name
		if v.Age != nil && *v.Age < 0 {
			return apperr.Validation("age must not be negative")
		}
	default:
		return ErrInvalidRole
	}
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name is required")
	}
	return nil
}
