package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/core/database"
	deptDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed departments, roles, posts and the superuser",
	Long: `Seed the reference data the console needs and the superuser account.
The superuser password is taken from security.init_password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Security.InitPassword == "" {
			return errors.New("security.init_password is required for seeding")
		}

		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}

		hash, err := auth.HashPassword(cfg.Security.InitPassword, cfg.Security.BCryptCost)
		if err != nil {
			return err
		}

		return db.Transaction(func(tx *gorm.DB) error {
			if clearData {
				if err := clearSeedData(tx); err != nil {
					return err
				}
			}
			return seed(tx, cfg.Security.SuperuserID, hash)
		})
	},
}

var seedDepts = []deptDatamodel.SysDept{
	{ID: 100, ParentID: 0, DeptName: "Head Office", OrderNum: 0, Status: "0"},
	{ID: 101, ParentID: 100, DeptName: "Engineering", OrderNum: 1, Status: "0"},
	{ID: 102, ParentID: 100, DeptName: "Operations", OrderNum: 2, Status: "0"},
	{ID: 103, ParentID: 101, DeptName: "Platform", OrderNum: 1, Status: "0"},
	{ID: 104, ParentID: 101, DeptName: "QA", OrderNum: 2, Status: "0"},
	{ID: 105, ParentID: 102, DeptName: "Finance", OrderNum: 1, Status: "0"},
}

var seedRoles = []roleDatamodel.SysRole{
	{ID: 1, RoleName: "Super Administrator", RoleKey: "admin", RoleSort: 1, DataScope: string(auth.DataScopeAll), Status: "0", IsAdmin: true},
	{ID: 2, RoleName: "Department Manager", RoleKey: "dept_manager", RoleSort: 2, DataScope: string(auth.DataScopeDeptAndChild), Status: "0"},
	{ID: 3, RoleName: "Department Clerk", RoleKey: "dept_clerk", RoleSort: 3, DataScope: string(auth.DataScopeDept), Status: "0"},
	{ID: 4, RoleName: "Staff", RoleKey: "common", RoleSort: 4, DataScope: string(auth.DataScopeSelf), Status: "0"},
}

var seedRolePermissions = map[int64][]string{
	2: {"system:user:list", "system:user:query", "system:user:add", "system:user:edit", "system:user:remove", "system:user:resetPwd"},
	3: {"system:user:list", "system:user:query", "system:user:edit"},
	4: {"system:user:query"},
}

var seedPosts = []postDatamodel.SysPost{
	{ID: 1, PostCode: "ceo", PostName: "Chief Executive", PostSort: 1, Status: "0"},
	{ID: 2, PostCode: "se", PostName: "Project Manager", PostSort: 2, Status: "0"},
	{ID: 3, PostCode: "hr", PostName: "Human Resources", PostSort: 3, Status: "0"},
	{ID: 4, PostCode: "user", PostName: "Staff", PostSort: 4, Status: "0"},
}

func seed(tx *gorm.DB, superuserID int64, passwordHash string) error {
	lg := logger.LoggerWrapper()
	skipExisting := clause.OnConflict{DoNothing: true}

	if err := tx.Clauses(skipExisting).Create(&seedDepts).Error; err != nil {
		return fmt.Errorf("seed departments: %w", err)
	}
	if err := tx.Clauses(skipExisting).Create(&seedRoles).Error; err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	for roleID, perms := range seedRolePermissions {
		for _, perm := range perms {
			rp := roleDatamodel.SysRolePermission{RoleID: roleID, Permission: perm}
			if err := tx.Clauses(skipExisting).Create(&rp).Error; err != nil {
				return fmt.Errorf("seed role permission %s: %w", perm, err)
			}
		}
	}
	if err := tx.Clauses(skipExisting).Create(&seedPosts).Error; err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	var existing userDatamodel.SysUser
	err := tx.Unscoped().Where("user_id = ?", superuserID).First(&existing).Error
	switch {
	case err == nil:
		lg.Info("superuser already exists; leaving password untouched", "user_id", superuserID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin := userDatamodel.SysUser{
			ID:       superuserID,
			DeptID:   seedDepts[0].ID,
			UserName: "admin",
			NickName: "Administrator",
			Password: passwordHash,
			Status:   "0",
			CreateBy: "seed",
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed superuser: %w", err)
		}
		lg.Info("seeded superuser", "user_id", superuserID, "user_name", admin.UserName)
	default:
		return err
	}

	link := userDatamodel.SysUserRole{UserID: superuserID, RoleID: seedRoles[0].ID}
	if err := tx.Clauses(skipExisting).Create(&link).Error; err != nil {
		return fmt.Errorf("seed superuser role: %w", err)
	}

	if database.IsSQLite(tx) {
		return nil
	}
	return syncSequences(tx)
}

// syncSequences moves identity sequences past the explicitly seeded ids.
func syncSequences(tx *gorm.DB) error {
	keys := map[string]string{
		"sys_dept": "dept_id",
		"sys_role": "role_id",
		"sys_post": "post_id",
		"sys_user": "user_id",
	}
	for table, column := range keys {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1))",
			table, column, column, table,
		)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("sync sequence %s: %w", table, err)
		}
	}
	return nil
}

// clearSeedData empties the reference tables. User rows other than the
// superuser keep their ids but lose their links.
func clearSeedData(tx *gorm.DB) error {
	tables := []interface{}{
		&userDatamodel.SysUserRole{},
		&userDatamodel.SysUserPost{},
		&roleDatamodel.SysRolePermission{},
		&roleDatamodel.SysRoleDept{},
		&roleDatamodel.SysRole{},
		&postDatamodel.SysPost{},
		&deptDatamodel.SysDept{},
	}
	for _, t := range tables {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	return nil
}
