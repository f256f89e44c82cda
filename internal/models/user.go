package models

import "strings"

// Admin is a dashboard administrator. Stored in the Firestore "admins"
// collection keyed by AdminID(email).
type Admin struct {
	ID        string `json:"id" firestore:"-" db:"id"`
	Email     string `json:"email" firestore:"email" db:"email"`
	Name      string `json:"name" firestore:"name" db:"name"`
	Password  string `json:"-" firestore:"password" db:"password"` // Never return password in JSON
	CreatedAt string `json:"createdAt,omitempty" firestore:"createdAt" db:"created_at"`
	UpdatedAt string `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" db:"updated_at"`
}

// AdminID derives the document id used for an admin email:
// lower-cased with '@' and '.' replaced by '_'.
func AdminID(email string) string {
	r := strings.NewReplacer("@", "_", ".", "_")
	return r.Replace(strings.ToLower(strings.TrimSpace(email)))
}

// LoginRequest is the request body for POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the profile returned after a successful login.
type UserResponse struct {
	UserID       string   `json:"userId"`
	OperatorID   string   `json:"operatorId,omitempty"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	AssignedBins []string `json:"assignedBins,omitempty"`
}

// LoginResponse wraps the profile and the signed JWT.
type LoginResponse struct {
	OK    bool          `json:"ok"`
	Token string        `json:"token,omitempty"`
	User  *UserResponse `json:"user,omitempty"`
}

// ToUserResponse converts an Admin to its login profile.
func (a *Admin) ToUserResponse() UserResponse {
	return UserResponse{
		UserID: a.ID,
		Email:  a.Email,
		Name:   a.Name,
		Role:   RoleAdmin,
	}
}

// ToUserResponse converts an Operator to its login profile.
func (o *Operator) ToUserResponse() UserResponse {
	role := o.Role
	if role == "" {
		role = RoleOperator
	}
	return UserResponse{
		UserID:       o.ID,
		OperatorID:   o.ID,
		Email:        o.Email,
		Name:         o.Name,
		Role:         role,
		AssignedBins: []string(o.AssignedBins),
	}
}
