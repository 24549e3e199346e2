package user

import (
	"time"

	"gorm.io/gorm"
)

type SysUser struct {
	ID        int64          `gorm:"column:user_id;primaryKey;autoIncrement"`
	DeptID    int64          `gorm:"column:dept_id;index"`
	UserName  string         `gorm:"column:user_name;size:30;not null"`
	NickName  string         `gorm:"column:nick_name;size:30;not null"`
	Email     string         `gorm:"column:email;size:50;not null;default:''"`
	Phone     string         `gorm:"column:phone;size:11;not null;default:''"`
	Sex       string         `gorm:"column:sex;size:1;not null;default:'0'"`
	Password  string         `gorm:"column:password;size:100;not null"`
	Status    string         `gorm:"column:status;size:1;not null;default:'0'"`
	Remark    string         `gorm:"column:remark;size:500"`
	CreateBy  string         `gorm:"column:create_by;size:64"`
	UpdateBy  string         `gorm:"column:update_by;size:64"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (SysUser) TableName() string { return "sys_user" }

type SysUserRole struct {
	UserID int64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	RoleID int64 `gorm:"column:role_id;primaryKey;autoIncrement:false"`
}

func (SysUserRole) TableName() string { return "sys_user_role" }

type SysUserPost struct {
	UserID int64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	PostID int64 `gorm:"column:post_id;primaryKey;autoIncrement:false"`
}

func (SysUserPost) TableName() string { return "sys_user_post" }
