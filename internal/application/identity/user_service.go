package identity

import (
	"context"

	"github.com/arflow/backend/internal/application/authz"
	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages the users of an organization. Every operation is ADMIN only.
type UserService struct {
	userRepo     identity.UserRepository
	customerRepo customer.Repository
	jwtService   *auth.JWTService
	blacklist    auth.TokenBlacklist
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	customerRepo customer.Repository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		jwtService:   jwtService,
		blacklist:    blacklist,
		publisher:    publisher,
		logger:       logger,
	}
}

// Create adds a user. CUSTOMER users must name the customer they act for.
func (s *UserService) Create(ctx context.Context, actor authz.Actor, req CreateUserRequest) (*UserResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "A user with this email already exists")
	}

	role := identity.Role(req.Role)
	user, err := identity.NewUser(actor.OrganizationID, req.Email, req.Name, req.Password, role)
	if err != nil {
		return nil, err
	}
	if err := s.linkCustomer(ctx, actor, user, role, req.CustomerID); err != nil {
		return nil, err
	}
	if !actor.IsSystem() {
		user.SetCreatedBy(actor.UserID)
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()))

	resp := ToUserResponse(user)
	return &resp, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// List returns the organization's users
func (s *UserService) List(ctx context.Context, actor authz.Actor, req ListUsersRequest) (shared.Paginated[UserResponse], error) {
	if err := actor.RequireAdmin(); err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	filter := req.toFilter()
	users, total, err := s.userRepo.FindAllForOrg(ctx, actor.OrganizationID, filter)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	items := make([]UserResponse, len(users))
	for i := range users {
		items[i] = ToUserResponse(&users[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ChangeRole assigns a new role and revokes the user's tokens so the change
// applies at once
func (s *UserService) ChangeRole(ctx context.Context, actor authz.Actor, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	role := identity.Role(req.Role)
	if err := user.ChangeRole(role, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.linkCustomer(ctx, actor, user, role, req.CustomerID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, user)
	s.publish(ctx, user)

	resp := ToUserResponse(user)
	return &resp, nil
}

// Disable blocks a user and ends their sessions
func (s *UserService) Disable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserResponse, error) {
	return s.setStatus(ctx, actor, id, func(u *identity.User) error { return u.Disable(actor.UserID) }, true)
}

// Enable re-activates a disabled user
func (s *UserService) Enable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserResponse, error) {
	return s.setStatus(ctx, actor, id, func(u *identity.User) error { return u.Enable(actor.UserID) }, false)
}

func (s *UserService) setStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, change func(*identity.User) error, revoke bool) (*UserResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByIDForOrg(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := change(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	if revoke {
		s.revokeSessions(ctx, user)
	}
	s.publish(ctx, user)

	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *UserService) linkCustomer(ctx context.Context, actor authz.Actor, user *identity.User, role identity.Role, customerID *uuid.UUID) error {
	if role != identity.RoleCustomer {
		return nil
	}
	if customerID == nil {
		if user.CustomerID != nil {
			return nil
		}
		return shared.NewDomainError("CUSTOMER_REQUIRED", "Customer users must be linked to a customer")
	}
	if _, err := s.customerRepo.FindByIDForOrg(ctx, actor.OrganizationID, *customerID); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
		}
		return err
	}
	return user.LinkCustomer(*customerID)
}

func (s *UserService) revokeSessions(ctx context.Context, user *identity.User) {
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwtService.RefreshExpiration()); err != nil {
		s.logger.Error("Failed to revoke user sessions",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, user *identity.User) {
	if err := shared.PublishAndClear(ctx, s.publisher, user); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}
}
