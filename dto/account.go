package dto

// UserResponse is a user as shown in the administration screens
type UserResponse struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// CreateUserRequest represents a new account
type CreateUserRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
	Role            string `json:"role"`
}

// EditUserRequest replaces the identity and complete role set of a user
type EditUserRequest struct {
	Email string   `json:"email" binding:"required,email"`
	Roles []string `json:"roles"`
}

// EditUserResponse feeds the edit form: the user, its roles and every role available
type EditUserResponse struct {
	UserResponse
	AllRoles []string `json:"allRoles"`
}

// RoleResponse is a role with the number of users holding it
type RoleResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserCount int64  `json:"userCount"`
}

// CreateRoleRequest represents a new role
type CreateRoleRequest struct {
	Name string `json:"name"`
}
