package usecase

import (
	"errors"
	"fmt"
	"log"
	"time"

	authdomain "ga03-kanban/internal/auth/domain"
	"ga03-kanban/internal/auth/repository"
	"ga03-kanban/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

type AuthUsecase interface {
	ValidateToken(tokenString string) (*authdomain.User, error)
	IssueAccessToken(user *authdomain.User) (string, error)
	// TokenUpdater persists Google tokens refreshed while talking to Gmail
	TokenUpdater(userID string) func(*oauth2.Token) error
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	config   *config.Config
	now      func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		config:   cfg,
		now:      time.Now,
	}
}

func (u *authUsecase) IssueAccessToken(user *authdomain.User) (string, error) {
	now := u.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(u.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *authUsecase) TokenUpdater(userID string) func(*oauth2.Token) error {
	return func(t *oauth2.Token) error {
		if err := u.userRepo.UpdateGoogleTokens(userID, t.AccessToken, t.RefreshToken, t.Expiry); err != nil {
			return fmt.Errorf("failed to save refreshed token: %w", err)
		}
		log.Printf("[Auth] Saved refreshed Google token for user %s", userID)
		return nil
	}
}
