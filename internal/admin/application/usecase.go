package application

import (
	"context"

	"digimarket/internal/admin/domain"
	"digimarket/internal/admin/ports"
	catalogdomain "digimarket/internal/catalog/domain"
	catalogports "digimarket/internal/catalog/ports"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// AdminUseCase serves the admin surface
type AdminUseCase struct {
	stats ports.StatsRepository
	users catalogports.UserRepository
	log   *logger.Logger
}

// NewAdminUseCase creates a new admin use case
func NewAdminUseCase(stats ports.StatsRepository, users catalogports.UserRepository, log *logger.Logger) *AdminUseCase {
	return &AdminUseCase{stats: stats, users: users, log: log}
}

func requireAdmin(actor auth.Actor) error {
	if !actor.IsAuthenticated() {
		return errors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return domain.ErrAdminOnly
	}
	return nil
}

// GetPlatformStats returns platform-wide figures
func (uc *AdminUseCase) GetPlatformStats(ctx context.Context, actor auth.Actor) (*domain.PlatformStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	stats, err := uc.stats.GetPlatformStats(ctx)
	if err != nil {
		return nil, errors.Internalize(err, "failed to load platform stats")
	}
	return stats, nil
}

// SetUserRoleInput represents the input for changing a user's role
type SetUserRoleInput struct {
	Actor  auth.Actor
	UserID uint
	Role   auth.Role
}

// SetUserRole grants or revokes the admin role
func (uc *AdminUseCase) SetUserRole(ctx context.Context, input SetUserRoleInput) (*catalogdomain.User, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, domain.ErrRoleInvalid
	}
	if input.Actor.Is(input.UserID) && input.Role != auth.RoleAdmin {
		return nil, domain.ErrSelfDemote
	}

	if err := uc.users.UpdateRole(ctx, input.UserID, input.Role); err != nil {
		return nil, errors.Internalize(err, "failed to update role")
	}
	user, err := uc.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, errors.Internalize(err, "failed to load user")
	}

	uc.log.WithContext(ctx).Info("user role changed",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return user, nil
}
