package service

import (
	"context"
	"fmt"

	"giveaway/models"

	log "github.com/sirupsen/logrus"
)

// AccessService answers the admin capability question from the roles table
type AccessService struct {
	uowFactory UnitOfWorkFactory
	audit      AuditAppender
}

// NewAccessService creates an access service
func NewAccessService(uowFactory UnitOfWorkFactory, audit AuditAppender) *AccessService {
	return &AccessService{
		uowFactory: uowFactory,
		audit:      audit,
	}
}

// IsAdmin reports whether userID holds the admin role. The system actor is always an admin.
func (s *AccessService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == SystemActorID {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	role, err := s.GetRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}

// GetRole returns the user's role, defaulting to RoleUser when none was ever set
func (s *AccessService) GetRole(ctx context.Context, userID string) (models.Role, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	userRole, err := uow.RoleRepository().GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if userRole == nil {
		return models.RoleUser, nil
	}
	return userRole.Role, nil
}

// SetUserRole assigns role to userID. Repeating the same assignment is a no-op and
// reports false; only real changes are audited.
func (s *AccessService) SetUserRole(ctx context.Context, actorID, userID string, role models.Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if userID == "" || userID == SystemActorID {
		return false, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	if err := requireAdmin(ctx, s, actorID); err != nil {
		return false, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	changed, err := uow.RoleRepository().Upsert(ctx, userID, role, actorID)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if changed {
		target := userID
		s.audit.Append(ctx, nil, models.AuditActionSetRole, actorID, &target, string(role))
		log.WithFields(log.Fields{
			"actorID": actorID,
			"userID":  userID,
			"role":    role,
		}).Info("Updated user role")
	}

	return changed, nil
}

// Bootstrap grants admin to every listed user on behalf of the system actor
func (s *AccessService) Bootstrap(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		if _, err := s.SetUserRole(ctx, SystemActorID, id, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to bootstrap admin %s: %w", id, err)
		}
	}
	if len(userIDs) > 0 {
		log.WithField("count", len(userIDs)).Info("Bootstrapped admin users")
	}
	return nil
}

// requireAdmin fails with ErrNotAdmin unless actorID holds the admin capability
func requireAdmin(ctx context.Context, admins AdminChecker, actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: missing actor", ErrNotAdmin)
	}

	ok, err := admins.IsAdmin(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to check admin capability: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAdmin, actorID)
	}
	return nil
}
