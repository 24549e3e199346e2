// Package testutil wires in-memory databases and reference fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/account-admin/internal/core/datamodel"
	deptDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
)

// Department ids of the fixture tree:
//
//	HQ(1)
//	├── Engineering(2)
//	│   └── Backend(4)
//	└── Sales(3)
const (
	DeptHQ          int64 = 1
	DeptEngineering int64 = 2
	DeptSales       int64 = 3
	DeptBackend     int64 = 4
)

// Role ids of the fixture roles, one per data scope.
const (
	RoleAdmin       int64 = 1
	RoleDeptOnly    int64 = 2
	RoleDeptAndDown int64 = 3
	RoleSelfOnly    int64 = 4
	RoleCustom      int64 = 5
)

const (
	PostCEO      int64 = 1
	PostEngineer int64 = 2
)

const (
	SuperuserID int64 = 1
	Password          = "secret123"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory database with the full schema.
// A single connection keeps every statement on the same memory database.
func NewSQLiteDB() (*gorm.DB, error) {
	name := fmt.Sprintf("file:testdb%d?mode=memory&_foreign_keys=on", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := datamodel.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedReference inserts the fixture departments, roles and posts.
func SeedReference(db *gorm.DB) error {
	depts := []deptDatamodel.SysDept{
		{ID: DeptHQ, ParentID: 0, DeptName: "HQ", OrderNum: 0, Status: "0"},
		{ID: DeptEngineering, ParentID: DeptHQ, DeptName: "Engineering", OrderNum: 1, Status: "0"},
		{ID: DeptSales, ParentID: DeptHQ, DeptName: "Sales", OrderNum: 2, Status: "0"},
		{ID: DeptBackend, ParentID: DeptEngineering, DeptName: "Backend", OrderNum: 1, Status: "0"},
	}
	if err := db.Create(&depts).Error; err != nil {
		return err
	}

	roles := []roleDatamodel.SysRole{
		{ID: RoleAdmin, RoleName: "Administrator", RoleKey: "admin", RoleSort: 1, DataScope: "1", Status: "0", IsAdmin: true},
		{ID: RoleDeptOnly, RoleName: "Clerk", RoleKey: "clerk", RoleSort: 2, DataScope: "3", Status: "0"},
		{ID: RoleDeptAndDown, RoleName: "Manager", RoleKey: "manager", RoleSort: 3, DataScope: "4", Status: "0"},
		{ID: RoleSelfOnly, RoleName: "Member", RoleKey: "member", RoleSort: 4, DataScope: "5", Status: "0"},
		{ID: RoleCustom, RoleName: "Auditor", RoleKey: "auditor", RoleSort: 5, DataScope: "2", Status: "0"},
	}
	if err := db.Create(&roles).Error; err != nil {
		return err
	}
	if err := db.Create(&roleDatamodel.SysRoleDept{RoleID: RoleCustom, DeptID: DeptSales}).Error; err != nil {
		return err
	}

	posts := []postDatamodel.SysPost{
		{ID: PostCEO, PostCode: "ceo", PostName: "Chief Executive", PostSort: 1, Status: "0"},
		{ID: PostEngineer, PostCode: "se", PostName: "Software Engineer", PostSort: 2, Status: "0"},
	}
	return db.Create(&posts).Error
}

// CreateUser inserts a user directly, bypassing every guard.
func CreateUser(db *gorm.DB, id, deptID int64, userName string, roleIDs ...int64) (*userDatamodel.SysUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	u := &userDatamodel.SysUser{
		ID:       id,
		DeptID:   deptID,
		UserName: userName,
		NickName: userName,
		Password: string(hash),
		Status:   "0",
		CreateBy: "fixture",
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	for _, roleID := range roleIDs {
		if err := db.Create(&userDatamodel.SysUserRole{UserID: u.ID, RoleID: roleID}).Error; err != nil {
			return nil, err
		}
	}
	return u, nil
}
