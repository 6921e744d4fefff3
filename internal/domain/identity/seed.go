package identity

import (
	"context"
	"errors"
)

// Fixture is one account created by Seed.
type Fixture struct {
	Credentials Credentials
	Profile     Profile
}

func intPtr(v int) *int { return &v }

// DemoFixtures returns the development accounts: one admin and three
// doctors. The passwords are fixed and must not be used outside
// development.
func DemoFixtures() []Fixture {
	return []Fixture{
		{
			Credentials: Credentials{Username: "admin", Password: "admin123"},
			Profile:     &AdminProfile{Name: "System Admin", Contact: "Admin Office"},
		},
		{
			Credentials: Credentials{Username: "alice", Password: "doc123"},
			Profile: &DoctorProfile{Name: "Dr. Alice Smith", Specialization: "Cardiology",
				Experience: intPtr(15), Contact: "123-456-7890", Fees: 1200},
		},
		{
			Credentials: Credentials{Username: "bob", Password: "doc123"},
			Profile: &DoctorProfile{Name: "Dr. Bob Johnson", Specialization: "Pediatrics",
				Experience: intPtr(10), Contact: "234-567-8901", Fees: 800},
		},
		{
			Credentials: Credentials{Username: "charlie", Password: "doc123"},
			Profile: &DoctorProfile{Name: "Dr. Charlie Brown", Specialization: "Neurology",
				Experience: intPtr(20), Contact: "345-678-9012", Fees: 1500},
		},
	}
}

// Seed registers every fixture whose username is not taken yet and returns
// how many were created. Running it again creates nothing.
func (s *Service) Seed(ctx context.Context, fixtures []Fixture) (int, error) {
	created := 0
	for _, f := range fixtures {
		_, err := s.Register(ctx, f.Credentials, f.Profile)
		if errors.Is(err, ErrUsernameTaken) {
			s.logger.Debug().Str("username", f.Credentials.Username).Msg("seed account exists, skipping")
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info().Int("accounts", created).Msg("seeded demo accounts")
	}
	return created, nil
}
