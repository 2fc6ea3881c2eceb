package services

import (
	"context"
	"strings"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/utils"
)

// AccountService administers users and roles
type AccountService struct {
	identity *IdentityService
}

// NewAccountService creates a new account service instance
func NewAccountService(identity *IdentityService) *AccountService {
	return &AccountService{identity: identity}
}

func toUserResponse(u models.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, UserName: u.UserName, Email: u.Email, Roles: u.RoleNames()}
}

// ListUsers returns every user with role names
func (s *AccountService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.identity.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out, nil
}

// GetUser returns a user together with every role that could be assigned
func (s *AccountService) GetUser(ctx context.Context, id string) (*dto.EditUserResponse, error) {
	user, err := s.identity.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.identity.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(roles))
	for _, r := range roles {
		all = append(all, r.Name)
	}
	return &dto.EditUserResponse{UserResponse: toUserResponse(*user), AllRoles: all}, nil
}

const (
	minPasswordLength = 6
	passwordTooShort  = "Password must be at least 6 characters long."
)

// CreateUser registers an account with an optional single role. The user name is the email.
func (s *AccountService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	var problems ValidationErrors
	if !utils.ValidateEmail(req.Email) {
		problems = append(problems, FieldError{Field: "email", Message: "Invalid email address."})
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, FieldError{Field: "password", Message: passwordTooShort})
	}
	if req.Password != req.ConfirmPassword {
		problems = append(problems, FieldError{Field: "confirmPassword", Message: "Passwords do not match."})
	}
	if len(problems) > 0 {
		return nil, problems
	}

	var roles []string
	if role := strings.TrimSpace(req.Role); role != "" {
		// reject an unknown role before the account exists
		if _, err := s.identity.ResolveRoles(ctx, []string{role}); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	user := &models.User{UserName: req.Email, Email: req.Email}
	if err := s.identity.CreateUser(ctx, user, req.Password); err != nil {
		return nil, err
	}
	if err := s.identity.AddToRoles(ctx, user, roles...); err != nil {
		return nil, err
	}

	resp := toUserResponse(*user)
	return &resp, nil
}

// SetPassword replaces the password of the account registered under email
func (s *AccountService) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return Invalid("password", passwordTooShort)
	}
	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.identity.SetPassword(ctx, user, password)
}

// EditUser replaces the email and the complete role set of a user.
// Unknown roles are rejected before anything changes.
func (s *AccountService) EditUser(ctx context.Context, id string, req dto.EditUserRequest) (*dto.UserResponse, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, Invalid("email", "Invalid email address.")
	}

	user, err := s.identity.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.identity.ResolveRoles(ctx, req.Roles); err != nil {
		return nil, err
	}

	if models.NormalizeName(user.Email) != models.NormalizeName(req.Email) || user.UserName != req.Email {
		if err := s.identity.UpdateEmail(ctx, user, req.Email); err != nil {
			return nil, err
		}
	}
	if err := s.identity.ReplaceRoles(ctx, user, req.Roles); err != nil {
		return nil, err
	}

	updated, err := s.identity.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(*updated)
	return &resp, nil
}

// DeleteUser removes an account; callers can never delete themselves
func (s *AccountService) DeleteUser(ctx context.Context, caller models.Caller, id string) error {
	user, err := s.identity.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == caller.UserID {
		return Conflict("You cannot delete your own account.")
	}
	return s.identity.DeleteUser(ctx, user)
}

// ListRoles returns every role with its member count
func (s *AccountService) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.identity.ListRolesWithCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, dto.RoleResponse{ID: r.ID, Name: r.Name, UserCount: r.UserCount})
	}
	return out, nil
}

// CreateRole adds a role; the name must be new, ignoring case
func (s *AccountService) CreateRole(ctx context.Context, name string) (*dto.RoleResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name", "Role name is required.")
	}
	exists, err := s.identity.RoleExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, Conflict("Role '%s' already exists.", name)
	}

	role, err := s.identity.CreateRole(ctx, name)
	if err != nil {
		return nil, err
	}
	return &dto.RoleResponse{ID: role.ID, Name: role.Name}, nil
}

// DeleteRole removes a role that nobody holds. The Admin role is permanent.
func (s *AccountService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.identity.FindRole(ctx, id)
	if err != nil {
		return err
	}
	if role.NormalizedName == models.NormalizeName(models.RoleAdmin) {
		return Conflict("The %s role cannot be deleted.", models.RoleAdmin)
	}

	members, err := s.identity.UsersInRole(ctx, role.ID)
	if err != nil {
		return err
	}
	if members > 0 {
		return Conflict("Role '%s' is assigned to %d user(s) and cannot be deleted.", role.Name, members)
	}
	return s.identity.DeleteRole(ctx, role.ID)
}
