package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// Claims are the identity provider's token claims. Subject is the provider's
// user id (ClerkID).
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens issued by the identity provider.
type Authenticator struct {
	Users  repository.UserRepository
	Secret []byte
}

func NewAuthenticator(users repository.UserRepository, secret string) *Authenticator {
	return &Authenticator{Users: users, Secret: []byte(secret)}
}

// Middleware verifies the token and, if valid, loads the user (creating it on
// first sight) and adds them to the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.Secret, nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrSignatureInvalid) {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token signature")
				return
			}
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token")
			return
		}
		if claims.Subject == "" {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Token has no subject")
			return
		}

		user, err := a.resolveUser(claims)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "User not found")
				return
			}
			logrus.WithError(err).Error("auth: failed to resolve user")
			WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolveUser(claims *Claims) (*models.User, error) {
	user, err := a.Users.GetByClerkID(claims.Subject)
	if err == nil || !errors.Is(err, repository.ErrNotFound) {
		return user, err
	}
	// first request from this identity
	if claims.Email == "" {
		return nil, err
	}
	user = &models.User{ClerkID: claims.Subject, Email: claims.Email}
	if err := a.Users.Create(user); err != nil {
		return nil, err
	}
	logrus.WithField("user", user.ID).Info("auth: registered new user")
	return user, nil
}

// UserFromContext returns the authenticated user, nil on public routes.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}
