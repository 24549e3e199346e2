package datamodel

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
	"github.com/frahmantamala/account-admin/internal/core/datamodel/post"
	"github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	"github.com/frahmantamala/account-admin/internal/core/datamodel/user"
)

// Partial unique indexes: deleted rows and blank phone/email never collide.
var userUniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_sys_user_user_name ON sys_user (user_name) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_sys_user_phone ON sys_user (phone) WHERE deleted_at IS NULL AND phone <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_sys_user_email ON sys_user (email) WHERE deleted_at IS NULL AND email <> ''`,
}

// AutoMigrate creates the account tables for dev and test databases.
// Production schemas come from the goose migrations in db/migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&dept.SysDept{},
		&role.SysRole{},
		&role.SysRoleDept{},
		&role.SysRolePermission{},
		&post.SysPost{},
		&user.SysUser{},
		&user.SysUserRole{},
		&user.SysUserPost{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range userUniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create unique index: %w", err)
		}
	}
	return nil
}
