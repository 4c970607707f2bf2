package repository

import (
	"context"

	"helpdesk/internal/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error)
	UpdateRefreshToken(ctx context.Context, id string, tokenHash *string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentifier resolves a login identifier that may be either an email or a mobile number
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("email = ? OR mobile = ?", identifier, identifier).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.User{}).
		Where("email = ? OR mobile = ?", email, mobile).
		Count(&count).Error
	return count > 0, err
}

// UpdateRefreshToken stores the hash of the live refresh token; nil clears it
func (r *userRepository) UpdateRefreshToken(ctx context.Context, id string, tokenHash *string) error {
	res := GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("refresh_token", tokenHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
