package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend-motorota/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrTokenRevoked       = errors.New("token revoked")
	errTokenInvalid       = errors.New("token invalid")
)

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	signTokenFn       = (*Service).signToken
	parseWithClaimsFn = jwt.ParseWithClaims
)

// Service is the identity backend: users, password checks and the tokens
// that make up a Session.
type Service struct {
	secret   []byte
	db       db.Querier
	denylist *Denylist
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier, rdb *redis.Client) *Service {
	return &Service{
		secret:   []byte(secret),
		db:       db,
		denylist: NewDenylist(rdb),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	hash, err := hashPasswordFn([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:    uuid.NewString(),
		Email: normalizeEmail(email),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, user.ID, user.Email, string(hash))
	if err := row.Scan(&user.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrAlreadyRegistered
		}
		return User{}, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1
	`, normalizeEmail(email))

	var user User
	var passwordHash string
	if err := row.Scan(&user.ID, &user.Email, &passwordHash, &user.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.GenerateTokens(ctx, user)
}

func (s *Service) GenerateTokens(ctx context.Context, user User) (Session, error) {
	access, err := signTokenFn(s, user, accessTokenTTL)
	if err != nil {
		return Session{}, err
	}

	refresh, err := signTokenFn(s, user, refreshTokenTTL)
	if err != nil {
		return Session{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, user.ID, refreshTokenTTL); err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(accessTokenTTL),
		User:         user,
	}, nil
}

// Verify checks the signature, expiry and denylist of an access token.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.Contains(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return Session{}, err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return Session{}, errors.New("refresh token invalid")
	}
	return s.GenerateTokens(ctx, User{ID: claims.UserID, Email: claims.Email})
}

// Revoke invalidates both halves of a session: the refresh row is marked
// revoked and the access token is denylisted until it would have expired.
func (s *Service) Revoke(ctx context.Context, session Session) error {
	_, dbErr := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL
	`, session.RefreshToken)
	denyErr := s.denylist.Add(ctx, session.AccessToken, session.ExpiresAt)
	return errors.Join(dbErr, denyErr)
}

func (s *Service) signToken(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
