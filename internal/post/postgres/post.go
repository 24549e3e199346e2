package postgres

import (
	"context"

	"gorm.io/gorm"

	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/internal/post"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) post.RepositoryAPI {
	return &PostRepository{db: db}
}

func (r *PostRepository) GetAll(ctx context.Context) ([]*postDatamodel.SysPost, error) {
	var posts []*postDatamodel.SysPost
	err := r.db.WithContext(ctx).Order("post_sort ASC").Find(&posts).Error
	return posts, err
}

func (r *PostRepository) GetByIDs(ctx context.Context, ids []int64) ([]*postDatamodel.SysPost, error) {
	var posts []*postDatamodel.SysPost
	if len(ids) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", ids).Order("post_sort ASC").Find(&posts).Error
	return posts, err
}

func (r *PostRepository) PostIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&userDatamodel.SysUserPost{}).
		Where("user_id = ?", userID).
		Order("post_id").
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *PostRepository) Create(ctx context.Context, p *postDatamodel.SysPost) error {
	return r.db.WithContext(ctx).Create(p).Error
}
