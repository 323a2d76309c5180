package base

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt tops out at 72 bytes of input.
const maxPasswordLength = 72

func (s *BaseAPI) Register(ctx context.Context, email, username, password string) (*cyberhive.UserFull, *StatusError) {
	if len(password) > maxPasswordLength {
		return nil, Statusf(400, "Password too long")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, WrapError(err, "Couldn't hash password")
	}

	id, err := s.store.CreateUser(ctx, email, username, string(hash), cyberhive.RoleParticipant)
	if err != nil {
		if errors.Is(err, cyberhive.ErrMissingRequired) {
			return nil, ErrMissingRequired
		}
		slog.WarnContext(ctx, "Couldn't create user", slog.Any("err", err))
		return nil, Statusf(400, "Email or username already in use")
	}

	user, err := s.store.UserFull(ctx, id)
	if err != nil || user == nil {
		return nil, WrapError(err, "Couldn't fetch created user")
	}
	return user, nil
}

// Login verifies the credentials and mints a signed session token.
func (s *BaseAPI) Login(ctx context.Context, login, password string) (string, *cyberhive.UserFull, *StatusError) {
	id, hash, err := s.store.UserLogin(ctx, login)
	if err != nil {
		// A missing account and a bad password look the same to the caller.
		return "", nil, Statusf(401, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, Statusf(401, "Invalid credentials")
	}

	user, err := s.store.UserFull(ctx, id)
	if err != nil || user == nil {
		return "", nil, WrapError(err, "Couldn't fetch user")
	}

	token, serr := s.createToken(user.ID)
	if serr != nil {
		return "", nil, serr
	}
	return token, user, nil
}

func (s *BaseAPI) createToken(userID int) (string, *StatusError) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.Lifetime())),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.Secret))
	if err != nil {
		return "", WrapError(err, "Couldn't sign session token")
	}
	return token, nil
}

// SessionUser resolves a bearer token to its user, through a short-TTL
// cache so hot requests don't hit the database.
func (s *BaseAPI) SessionUser(ctx context.Context, token string) (*cyberhive.UserFull, *StatusError) {
	if token == "" {
		return nil, nil
	}
	user, err := s.sessionUserCache.Get(ctx, token)
	if err != nil {
		return nil, WrapError(err, "Invalid session")
	}
	return user, nil
}

func (s *BaseAPI) sessionUser(ctx context.Context, token string) (*cyberhive.UserFull, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Auth.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, Statusf(401, "Invalid session token")
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, Statusf(401, "Invalid session token")
	}

	user, err := s.store.UserFull(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, Statusf(401, "Session user no longer active")
	}
	return user, nil
}

func (s *BaseAPI) UserRating(ctx context.Context, userID int) (*cyberhive.UserRating, *StatusError) {
	rating, err := s.store.UserRating(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch rating")
	}
	return rating, nil
}
