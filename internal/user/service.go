package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/user"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidCreds     = errors.New("invalid credentials")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrInvalidEmail     = errors.New("please enter a valid email")
	ErrNameRequired     = errors.New("name is required")
)

const RoleAdmin = "admin"

// Claims are carried by every issued token. Subject is the user id for
// customers and the admin email for admin tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AdminCredentials struct {
	Email    string
	Password string
}

type Service struct {
	repo      UserRepository
	jwtSecret []byte
	jwtTTL    time.Duration
	admin     AdminCredentials
}

func NewService(repo UserRepository, jwtSecret []byte, jwtTTL time.Duration, admin AdminCredentials) *Service {
	return &Service{repo: repo, jwtSecret: jwtSecret, jwtTTL: jwtTTL, admin: admin}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCreds
	}
	return s.issue(u.ID, "")
}

// AuthenticateAdmin checks the configured admin credentials. An unset admin
// email disables admin login.
func (s *Service) AuthenticateAdmin(email, password string) (string, error) {
	if s.admin.Email == "" || s.admin.Password == "" {
		return "", ErrInvalidCreds
	}
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(normalizeEmail(s.admin.Email)))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password))
	if emailOK&passOK != 1 {
		return "", ErrInvalidCreds
	}
	return s.issue(normalizeEmail(s.admin.Email), RoleAdmin)
}

func (s *Service) issue(subject, role string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
