package services

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/repository"
	"github.com/GShadowBroker/library-server/utils/errors"
)

// currentUserKey is the context key under which the resolved identity is
// stored for the duration of a request.
const currentUserKey = "currentUser"

type AuthService struct {
	users       repository.UserRepository
	tokenSecret string
}

func NewAuthService(users repository.UserRepository, tokenSecret string) *AuthService {
	return &AuthService{users: users, tokenSecret: tokenSecret}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, username, favoriteGenre, password, repeatPassword string) (*models.User, error) {
	if len(username) < 3 {
		return nil, errors.NewValidationError("username", "Username must be at least 3 characters long")
	}
	if len(password) < 5 {
		return nil, errors.NewValidationError("password", "Password must be at least 5 characters long")
	}
	if password != repeatPassword {
		return nil, errors.NewValidationError("repeatPassword", "Passwords do not match")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "HASH_ERROR", "Failed to hash password", http.StatusInternalServerError)
	}

	user := &models.User{
		Username:      username,
		FavoriteGenre: favoriteGenre,
		Password:      string(passwordHash),
		FriendIDs:     []string{},
		RequestIDs:    []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateKey {
			return nil, errors.NewValidationError("username", "Username is already taken")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to create user", http.StatusInternalServerError)
	}

	user.Friends = []*models.User{}
	user.FriendRequests = []*models.User{}
	return user, nil
}

// Login authenticates a user and issues a signed token of {username, id}.
// The token carries identity only, never relationship data, and does not
// expire. Unknown username and wrong password are reported identically so
// callers cannot probe for account existence.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Token, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if user == nil {
		return nil, errors.ErrCredentialMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.ErrCredentialMismatch
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"id":       user.ID,
	})
	tokenString, err := token.SignedString([]byte(s.tokenSecret))
	if err != nil {
		return nil, errors.Wrap(err, "JWT_ERROR", "Failed to sign token", http.StatusInternalServerError)
	}

	return &models.Token{Username: user.Username, ID: user.ID, Value: tokenString}, nil
}

// Authenticate resolves a bearer credential into the current user record.
// The credential only proves identity; friend and request lists are read
// fresh from the store so every request observes current relationship state.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrUnauthenticated
		}
		return []byte(s.tokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.ErrUnauthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return nil, errors.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if user == nil {
		return nil, errors.ErrUnauthenticated
	}
	return user, nil
}

// WithCurrentUser stores the authenticated identity on the request context.
func WithCurrentUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// CurrentUser returns the authenticated identity, or nil for an anonymous
// request.
func CurrentUser(ctx context.Context) *models.User {
	user, ok := ctx.Value(currentUserKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
