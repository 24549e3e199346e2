package post

import (
	"context"
	"log/slog"

	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*postDatamodel.SysPost, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*postDatamodel.SysPost, error)
	PostIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	Create(ctx context.Context, post *postDatamodel.SysPost) error
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

// ListActive returns the enabled posts in display order.
func (s *Service) ListActive(ctx context.Context) ([]*Post, error) {
	dataPosts, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get posts from repository", "error", err)
		return nil, err
	}

	posts := make([]*Post, 0, len(dataPosts))
	for _, m := range dataPosts {
		p := FromDataModel(m)
		if p.IsActivePost() {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (s *Service) GetAllPosts(ctx context.Context) ([]PostResponse, error) {
	posts, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, p.ToResponse())
	}

	s.logger.Debug("retrieved posts", "count", len(responses))
	return responses, nil
}

// ExistingIDs returns which of ids name a post, regardless of status.
func (s *Service) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	posts, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		found[p.ID] = true
	}
	return found, nil
}

func (s *Service) PostIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.PostIDsByUser(ctx, userID)
}
