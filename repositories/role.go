package repositories

import (
	"context"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
)

// RoleWithCount pairs a role with the number of users holding it
type RoleWithCount struct {
	models.Role
	UserCount int64
}

// RoleRepository handles database operations for roles
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository instance
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindAll retrieves every role ordered by name
func (r *RoleRepository) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).Order("name").Find(&roles).Error
	return roles, err
}

// FindAllWithCounts retrieves every role with its member count
func (r *RoleRepository) FindAllWithCounts(ctx context.Context) ([]RoleWithCount, error) {
	var rows []RoleWithCount
	err := r.db.WithContext(ctx).Model(&models.Role{}).
		Select("roles.id, roles.name, roles.normalized_name, COUNT(user_roles.user_id) AS user_count").
		Joins("LEFT JOIN user_roles ON user_roles.role_id = roles.id").
		Group("roles.id, roles.name, roles.normalized_name").
		Order("roles.name").
		Scan(&rows).Error
	return rows, err
}

// FindByID retrieves a role by its ID
func (r *RoleRepository) FindByID(ctx context.Context, id string) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error
	return role, err
}

// FindByName looks a role up by name, ignoring case
func (r *RoleRepository) FindByName(ctx context.Context, name string) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).First(&role, "normalized_name = ?", models.NormalizeName(name)).Error
	return role, err
}

// FindByNames returns the roles matching the given names, ignoring case
func (r *RoleRepository) FindByNames(ctx context.Context, names []string) ([]models.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, models.NormalizeName(n))
	}
	var roles []models.Role
	err := r.db.WithContext(ctx).Where("normalized_name IN ?", keys).Order("name").Find(&roles).Error
	return roles, err
}

// Create inserts a new role
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// Delete removes a role
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Role{}, "id = ?", id).Error
}

// CountUsers returns how many users hold the role
func (r *RoleRepository) CountUsers(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("user_roles").Where("role_id = ?", id).Count(&count).Error
	return count, err
}
