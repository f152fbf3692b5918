package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"procurement-backend/db/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	DeactivateUser(id uint) error
	UnknownApprovers(ctx context.Context, ids []uint) ([]uint, error)
}

// Implementations
type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(user *models.User) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var existing models.User
	err := r.db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("a user with that email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user in database: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) DeactivateUser(id uint) error {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate user %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UnknownApprovers returns the ids, in input order, that do not belong to an
// active user. Role checks are left to the caller.
func (r *userRepository) UnknownApprovers(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND active = ?", ids, true).
		Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up approvers: %w", err)
	}

	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var unknown []uint
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}
