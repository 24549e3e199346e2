package user

import (
	"context"

	errors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/core/events"
	"golang.org/x/sync/errgroup"
)

// AuthRoles returns the user with the assignable roles, flagging the ones
// the user currently holds.
func (s *Service) AuthRoles(ctx context.Context, p *auth.Principal, userID int64) (*AuthRoleInfo, error) {
	if err := s.perms.Require(p, auth.OpAuthRoles); err != nil {
		return nil, err
	}
	u, err := s.guardedTarget(ctx, p, userID)
	if err != nil {
		return nil, err
	}

	info := &AuthRoleInfo{User: u}
	var held []int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roles, err := s.roles.ListAssignable(gctx, p)
		info.Roles = roles
		return err
	})
	g.Go(func() error {
		ids, err := s.roles.RoleIDsByUser(gctx, userID)
		held = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewInternalError("failed to load roles", err)
	}

	heldSet := make(map[int64]bool, len(held))
	for _, id := range held {
		heldSet[id] = true
	}
	for _, r := range info.Roles {
		r.Flag = heldSet[r.ID]
	}
	return info, nil
}

// AssignRoles replaces every role of the user with roleIDs. Duplicates
// collapse; an empty list leaves the user without roles.
func (s *Service) AssignRoles(ctx context.Context, p *auth.Principal, dto AssignRolesDTO) error {
	if err := s.perms.Require(p, auth.OpAssignRoles); err != nil {
		return err
	}
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}
	if _, err := s.guardedTarget(ctx, p, dto.UserID); err != nil {
		return err
	}

	roleIDs := distinctIDs(dto.RoleIDs)
	if len(roleIDs) > 0 {
		roles, err := s.roles.GetByIDs(ctx, roleIDs)
		if err != nil {
			return errors.NewInternalError("failed to load roles", err)
		}
		for _, r := range roles {
			if err := s.guard.CheckRoleAssignable(p, r.ID, r.IsAdmin); err != nil {
				return err
			}
		}
	}

	if err := s.repo.ReplaceRoles(ctx, dto.UserID, roleIDs); err != nil {
		return s.assignError(err, "roles", dto.UserID)
	}

	s.logger.Info("user roles replaced", "user_id", dto.UserID, "role_ids", roleIDs, "by", p.UserName)
	s.publish(ctx, p, events.EventTypeUserRolesAssigned, []int64{dto.UserID}, map[string]interface{}{
		"role_ids": roleIDs,
	})
	return nil
}

// AssignPosts replaces every post of the user with postIDs.
func (s *Service) AssignPosts(ctx context.Context, p *auth.Principal, dto AssignPostsDTO) error {
	if err := s.perms.Require(p, auth.OpAssignPosts); err != nil {
		return err
	}
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}
	if _, err := s.guardedTarget(ctx, p, dto.UserID); err != nil {
		return err
	}

	postIDs := distinctIDs(dto.PostIDs)
	if err := s.repo.ReplacePosts(ctx, dto.UserID, postIDs); err != nil {
		return s.assignError(err, "posts", dto.UserID)
	}

	s.publish(ctx, p, events.EventTypeUserPostsAssigned, []int64{dto.UserID}, map[string]interface{}{
		"post_ids": postIDs,
	})
	return nil
}

func (s *Service) assignError(err error, what string, userID int64) error {
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr
	}
	s.logger.Error("failed to replace user associations", "kind", what, "user_id", userID, "error", err)
	return errors.NewInternalError("failed to assign "+what, err)
}
