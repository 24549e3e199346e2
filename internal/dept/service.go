package dept

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/account-admin/internal/auth"
	deptDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*deptDatamodel.SysDept, error)
	DescendantIDs(ctx context.Context, deptID int64) ([]int64, error)
}

// ScopeFilterer resolves a principal's data scope into a row filter.
type ScopeFilterer interface {
	Filter(ctx context.Context, p *auth.Principal) (auth.ScopeFilter, error)
}

type Service struct {
	repo   RepositoryAPI
	scope  ScopeFilterer
	perms  auth.PermissionChecker
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, scope ScopeFilterer, perms auth.PermissionChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		scope:  scope,
		perms:  perms,
		logger: logger,
	}
}

// Tree returns the department tree limited to what p may see.
func (s *Service) Tree(ctx context.Context, p *auth.Principal) ([]*TreeNode, error) {
	if err := s.perms.Require(p, auth.OpDeptTree); err != nil {
		return nil, err
	}

	filter, err := s.scope.Filter(ctx, p)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to load departments", "error", err)
		return nil, err
	}

	visible := make([]*Dept, 0, len(all))
	for _, m := range all {
		// self-only principals still see their own department
		if filter.Permits(0, m.ID) || (filter.UserID != 0 && m.ID == p.DeptID) {
			visible = append(visible, FromDataModel(m))
		}
	}
	return BuildTree(visible), nil
}

// DescendantIDs exposes the directory to the data-scope guard.
func (s *Service) DescendantIDs(ctx context.Context, deptID int64) ([]int64, error) {
	return s.repo.DescendantIDs(ctx, deptID)
}
