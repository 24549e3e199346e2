package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(ctx context.Context, userName string) (*auth.Credentials, error) {
	var u userDatamodel.SysUser
	err := r.db.WithContext(ctx).
		Select("user_id", "user_name", "password", "status").
		Where("user_name = ?", userName).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		UserName:     u.UserName,
		PasswordHash: u.Password,
		Status:       u.Status,
	}, nil
}

// LoadPrincipal returns the principal without the superuser decision,
// plus the account status.
func (r *Repository) LoadPrincipal(ctx context.Context, userID int64) (*auth.Principal, string, error) {
	db := r.db.WithContext(ctx)

	var u userDatamodel.SysUser
	if err := db.Select("user_id", "user_name", "dept_id", "status").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", appErrors.ErrUserNotFound
		}
		return nil, "", err
	}

	var roles []roleDatamodel.SysRole
	err := db.Table("sys_role r").
		Select("r.*").
		Joins("JOIN sys_user_role ur ON ur.role_id = r.role_id").
		Where("ur.user_id = ? AND r.status = ?", userID, auth.StatusActive).
		Order("r.role_sort ASC").
		Find(&roles).Error
	if err != nil {
		return nil, "", fmt.Errorf("load roles: %w", err)
	}

	p := &auth.Principal{
		ID:       u.ID,
		UserName: u.UserName,
		DeptID:   u.DeptID,
		Roles:    make([]auth.RoleGrant, 0, len(roles)),
	}
	if len(roles) == 0 {
		return p, u.Status, nil
	}

	roleIDs := make([]int64, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	var roleDepts []roleDatamodel.SysRoleDept
	if err := db.Where("role_id IN ?", roleIDs).Find(&roleDepts).Error; err != nil {
		return nil, "", fmt.Errorf("load role departments: %w", err)
	}
	customDepts := make(map[int64][]int64)
	for _, rd := range roleDepts {
		customDepts[rd.RoleID] = append(customDepts[rd.RoleID], rd.DeptID)
	}

	for _, role := range roles {
		p.Roles = append(p.Roles, auth.RoleGrant{
			RoleID:        role.ID,
			RoleKey:       role.RoleKey,
			DataScope:     auth.DataScope(role.DataScope),
			IsAdmin:       role.IsAdmin,
			CustomDeptIDs: customDepts[role.ID],
		})
	}

	if err := db.Model(&roleDatamodel.SysRolePermission{}).
		Distinct("permission").
		Where("role_id IN ?", roleIDs).
		Order("permission").
		Pluck("permission", &p.Permissions).Error; err != nil {
		return nil, "", fmt.Errorf("load permissions: %w", err)
	}

	return p, u.Status, nil
}
