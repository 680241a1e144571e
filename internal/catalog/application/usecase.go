package application

import (
	"context"
	"time"

	"digimarket/internal/catalog/domain"
	"digimarket/internal/catalog/ports"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// UserUseCase handles user business logic
type UserUseCase struct {
	repo ports.UserRepository
	log  *logger.Logger
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(repo ports.UserRepository, log *logger.Logger) *UserUseCase {
	return &UserUseCase{
		repo: repo,
		log:  log,
	}
}

// RegisterUserInput represents the input for registering a user
type RegisterUserInput struct {
	Name  string
	Email string
}

// RegisterUserOutput represents the output of registering a user
type RegisterUserOutput struct {
	User *domain.User
}

// RegisterUser creates a new user account
func (uc *UserUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	// Create domain entity with validation
	user, err := domain.NewUser(input.Name, input.Email, time.Now())
	if err != nil {
		return nil, err
	}

	// Check if email already exists
	existing, err := uc.repo.GetByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		return nil, errors.NewInternal("failed to check email existence", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailExists
	}

	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, errors.Internalize(err, "failed to create user")
	}

	uc.log.WithContext(ctx).Info("user registered",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return &RegisterUserOutput{User: user}, nil
}

// GetUserInput represents the input for getting a user
type GetUserInput struct {
	ID uint
}

// GetUserOutput represents the output of getting a user
type GetUserOutput struct {
	User *domain.User
}

// GetUser retrieves a user profile with seller stats
func (uc *UserUseCase) GetUser(ctx context.Context, input GetUserInput) (*GetUserOutput, error) {
	user, err := uc.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &GetUserOutput{User: user}, nil
}
