package staffauth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"civicdesk/api/internal/scope"
)

var (
	ErrUnknownDepartment  = errors.New("unknown department")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service checks staff panel passwords. Each department has its own shared
// secret; "central" unlocks the city-wide admin panel. Secrets may be stored
// as bcrypt hashes or as plain values, distinguished by the bcrypt prefix.
type Service struct {
	central     string
	departments map[string]string
}

func NewService(central string, departments map[string]string) *Service {
	return &Service{central: central, departments: departments}
}

// Verify checks the password for the given subject and returns the scope set
// the resulting session should carry.
func (s *Service) Verify(subject, password string) ([]string, error) {
	var secret string
	switch {
	case subject == string(scope.Central):
		secret = s.central
	case scope.ValidDepartment(subject):
		secret = s.departments[subject]
	default:
		return nil, ErrUnknownDepartment
	}
	if secret == "" {
		// Department exists but no secret configured: nobody can log in.
		return nil, ErrInvalidCredentials
	}
	if !matches(secret, password) {
		return nil, ErrInvalidCredentials
	}
	return scope.For(subject), nil
}

func matches(secret, password string) bool {
	if strings.HasPrefix(secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}
