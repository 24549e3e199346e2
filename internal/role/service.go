package role

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/account-admin/internal/auth"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*roleDatamodel.SysRole, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*roleDatamodel.SysRole, error)
	RoleIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListAssignable returns the roles p may grant. The superuser role is only
// visible to the superuser.
func (s *Service) ListAssignable(ctx context.Context, p *auth.Principal) ([]*Role, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get roles from repository", "error", err)
		return nil, err
	}

	roles := make([]*Role, 0, len(all))
	for _, m := range all {
		if m.IsAdmin && (p == nil || !p.Superuser) {
			continue
		}
		roles = append(roles, FromDataModel(m))
	}
	return roles, nil
}

func (s *Service) GetByIDs(ctx context.Context, ids []int64) ([]*Role, error) {
	if len(ids) == 0 {
		return []*Role{}, nil
	}
	models, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	roles := make([]*Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, FromDataModel(m))
	}
	return roles, nil
}

func (s *Service) RoleIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.RoleIDsByUser(ctx, userID)
}
