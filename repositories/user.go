package repositories

import (
	"context"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for users and their role assignments
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll retrieves every user with roles, ordered by email
func (r *UserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Preload("Roles").Order("normalized_email").Find(&users).Error
	return users, err
}

// FindByID retrieves a user with roles
func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error
	return user, err
}

// FindByEmail looks a user up by email, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Roles").
		First(&user, "normalized_email = ?", models.NormalizeName(email)).Error
	return user, err
}

// EmailTaken reports whether another user already uses the email or user name
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var count int64
	key := models.NormalizeName(email)
	db := r.db.WithContext(ctx).Model(&models.User{}).
		Where("normalized_email = ? OR normalized_user_name = ?", key, key)
	if exceptID != "" {
		db = db.Where("id <> ?", exceptID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

// Create inserts a user together with any roles already attached to it
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error
}

// UpdateIdentity saves the user name and email columns
func (r *UserRepository) UpdateIdentity(ctx context.Context, user *models.User) error {
	user.Normalize()
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"user_name":            user.UserName,
			"normalized_user_name": user.NormalizedUserName,
			"email":                user.Email,
			"normalized_email":     user.NormalizedEmail,
		}).Error
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// AddRoles assigns roles to the user, keeping the existing ones
func (r *UserRepository) AddRoles(ctx context.Context, user *models.User, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(user).Association("Roles").Append(roles)
}

// ReplaceRoles makes roles the complete role set of the user
func (r *UserRepository) ReplaceRoles(ctx context.Context, user *models.User, roles []models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		if len(roles) == 0 {
			user.Roles = nil
			return nil
		}
		return tx.Model(user).Association("Roles").Append(roles)
	})
}

// Delete removes the user and its role assignments
func (r *UserRepository) Delete(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Select(clause.Associations).Delete(user).Error
}
