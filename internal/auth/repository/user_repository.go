package repository

import (
	"errors"
	"time"

	authdomain "ga03-kanban/internal/auth/domain"

	"gorm.io/gorm"
)

// UserRepository reads board owners. Accounts are created by the login
// service that shares this database.
type UserRepository interface {
	FindByID(id string) (*authdomain.User, error)
	// UpdateGoogleTokens stores a refreshed OAuth token. An empty refresh token keeps the stored one.
	UpdateGoogleTokens(userID, accessToken, refreshToken string, expiry time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID returns nil, nil when the user does not exist
func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	var user authdomain.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateGoogleTokens(userID, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"token_expiry": expiry,
		"updated_at":   time.Now(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	res := r.db.Model(&authdomain.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
