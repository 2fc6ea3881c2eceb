package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/defect-tracker/models"
	"github.com/defect-tracker/repositories"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IdentityService stores users, credentials and role assignments
type IdentityService struct {
	users *repositories.UserRepository
	roles *repositories.RoleRepository
}

// NewIdentityService creates a new identity service instance
func NewIdentityService(users *repositories.UserRepository, roles *repositories.RoleRepository) *IdentityService {
	return &IdentityService{users: users, roles: roles}
}

// HashPassword hashes a plain-text password with bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CreateUser stores a new user with a hashed password.
// A taken email is reported as a field error on "email".
func (s *IdentityService) CreateUser(ctx context.Context, user *models.User, password string) error {
	taken, err := s.users.EmailTaken(ctx, user.Email, "")
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return Invalid("email", fmt.Sprintf("Email '%s' is already taken.", user.Email))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if user.UserName == "" {
		user.UserName = user.Email
	}

	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID loads a user with roles
func (s *IdentityService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// FindByEmail loads a user with roles by email, ignoring case
func (s *IdentityService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// ListUsers returns every user with roles
func (s *IdentityService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CheckPassword reports whether password matches the stored hash
func (s *IdentityService) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the stored password hash
func (s *IdentityService) SetPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = hash
	return nil
}

// UpdateEmail changes the email and user name together
func (s *IdentityService) UpdateEmail(ctx context.Context, user *models.User, email string) error {
	taken, err := s.users.EmailTaken(ctx, email, user.ID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return Invalid("email", fmt.Sprintf("Email '%s' is already taken.", email))
	}
	user.Email = email
	user.UserName = email
	if err := s.users.UpdateIdentity(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ResolveRoles maps role names onto stored roles; an unknown name is a validation error
func (s *IdentityService) ResolveRoles(ctx context.Context, names []string) ([]models.Role, error) {
	wanted := dedupe(names)
	if len(wanted) == 0 {
		return nil, nil
	}
	roles, err := s.roles.FindByNames(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	known := make(map[string]bool, len(roles))
	for _, r := range roles {
		known[r.NormalizedName] = true
	}
	var problems ValidationErrors
	for _, n := range wanted {
		if !known[models.NormalizeName(n)] {
			problems = append(problems, FieldError{Field: "roles", Message: fmt.Sprintf("Role '%s' does not exist.", n)})
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return roles, nil
}

// AddToRoles assigns the named roles on top of the current ones
func (s *IdentityService) AddToRoles(ctx context.Context, user *models.User, names ...string) error {
	roles, err := s.ResolveRoles(ctx, names)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(user.Roles))
	for _, r := range user.Roles {
		have[r.ID] = true
	}
	var missing []models.Role
	for _, r := range roles {
		if !have[r.ID] {
			missing = append(missing, r)
		}
	}
	if err := s.users.AddRoles(ctx, user, missing); err != nil {
		return fmt.Errorf("add roles: %w", err)
	}
	return nil
}

// ReplaceRoles makes names the complete role set of the user
func (s *IdentityService) ReplaceRoles(ctx context.Context, user *models.User, names []string) error {
	roles, err := s.ResolveRoles(ctx, names)
	if err != nil {
		return err
	}
	if err := s.users.ReplaceRoles(ctx, user, roles); err != nil {
		return fmt.Errorf("replace roles: %w", err)
	}
	return nil
}

// DeleteUser removes the user and its role assignments
func (s *IdentityService) DeleteUser(ctx context.Context, user *models.User) error {
	if err := s.users.Delete(ctx, user); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListRoles returns every role
func (s *IdentityService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// ListRolesWithCounts returns every role with the number of members
func (s *IdentityService) ListRolesWithCounts(ctx context.Context) ([]repositories.RoleWithCount, error) {
	roles, err := s.roles.FindAllWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// RoleExists reports whether a role with the name exists, ignoring case
func (s *IdentityService) RoleExists(ctx context.Context, name string) (bool, error) {
	_, err := s.roles.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find role: %w", err)
	}
	return true, nil
}

// CreateRole stores a new role
func (s *IdentityService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{Name: strings.TrimSpace(name)}
	if err := s.roles.Create(ctx, &role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return &role, nil
}

// FindRole loads a role by id
func (s *IdentityService) FindRole(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "role")
	}
	return &role, nil
}

// UsersInRole counts the members of a role
func (s *IdentityService) UsersInRole(ctx context.Context, roleID string) (int64, error) {
	n, err := s.roles.CountUsers(ctx, roleID)
	if err != nil {
		return 0, fmt.Errorf("count role members: %w", err)
	}
	return n, nil
}

// DeleteRole removes a role
func (s *IdentityService) DeleteRole(ctx context.Context, roleID string) error {
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := models.NormalizeName(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
