package domain

import "digimarket/pkg/errors"

// Domain-specific errors
var (
	ErrAdminOnly   = errors.NewForbidden("admin role required")
	ErrRoleInvalid = errors.NewValidation("role must be USER or ADMIN", nil)
	ErrSelfDemote  = errors.NewInvalidState("admins cannot remove their own admin role", nil)
)
