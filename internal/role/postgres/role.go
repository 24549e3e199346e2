package postgres

import (
	"context"

	"gorm.io/gorm"

	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetAll(ctx context.Context) ([]*roleDatamodel.SysRole, error) {
	var roles []*roleDatamodel.SysRole
	err := r.db.WithContext(ctx).Order("role_sort ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*roleDatamodel.SysRole, error) {
	var roles []*roleDatamodel.SysRole
	err := r.db.WithContext(ctx).Where("role_id IN ?", ids).Order("role_sort ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) RoleIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&userDatamodel.SysUserRole{}).
		Where("user_id = ?", userID).
		Order("role_id").
		Pluck("role_id", &ids).Error
	return ids, err
}
