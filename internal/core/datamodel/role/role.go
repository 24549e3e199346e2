package role

import "time"

type SysRole struct {
	ID        int64     `gorm:"column:role_id;primaryKey;autoIncrement"`
	RoleName  string    `gorm:"column:role_name;size:30;not null"`
	RoleKey   string    `gorm:"column:role_key;size:100;not null;uniqueIndex"`
	RoleSort  int       `gorm:"column:role_sort;not null;default:0"`
	DataScope string    `gorm:"column:data_scope;size:1;not null;default:'1'"`
	Status    string    `gorm:"column:status;size:1;not null;default:'0'"`
	IsAdmin   bool      `gorm:"column:is_admin;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SysRole) TableName() string { return "sys_role" }

// SysRoleDept lists the departments a custom data scope role may see.
type SysRoleDept struct {
	RoleID int64 `gorm:"column:role_id;primaryKey;autoIncrement:false"`
	DeptID int64 `gorm:"column:dept_id;primaryKey;autoIncrement:false"`
}

func (SysRoleDept) TableName() string { return "sys_role_dept" }

type SysRolePermission struct {
	RoleID     int64  `gorm:"column:role_id;primaryKey;autoIncrement:false"`
	Permission string `gorm:"column:permission;primaryKey;size:100"`
}

func (SysRolePermission) TableName() string { return "sys_role_permission" }
