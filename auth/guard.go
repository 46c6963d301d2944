package auth

import (
	"forum/common"
	"forum/models"
)

var (
	ErrAdminRequired = common.Forbidden("Forbidden: Admin access required")
	ErrUserRequired  = common.Forbidden("Forbidden: a user account is required")
	ErrNotPostOwner  = common.Forbidden("You can only edit your own posts")
)

func IsAdmin(id *Identity) bool {
	return id != nil && id.Role == models.RoleAdmin
}

// IsUser reports whether id refers to a row in the users table. Admin
// identities come from admin_accounts, so their IDs must not be used as
// user IDs.
func IsUser(id *Identity) bool {
	return id != nil && id.Role == models.RoleUser
}

func CanEditPost(id *Identity, post *models.Post) bool {
	return IsUser(id) && post != nil && post.UserID == id.ID
}

func RequireAdmin(id *Identity) error {
	if !IsAdmin(id) {
		return ErrAdminRequired
	}
	return nil
}

func RequireUser(id *Identity) error {
	if !IsUser(id) {
		return ErrUserRequired
	}
	return nil
}

func AuthorizePostEdit(id *Identity, post *models.Post) error {
	if !CanEditPost(id, post) {
		return ErrNotPostOwner
	}
	return nil
}
