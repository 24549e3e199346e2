package user

import (
	"fmt"
	"time"

	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/internal/post"
	"github.com/frahmantamala/account-admin/internal/role"
)

const (
	StatusActive   = "0"
	StatusDisabled = "1"
)

type User struct {
	ID           int64     `json:"user_id"`
	DeptID       int64     `json:"dept_id"`
	UserName     string    `json:"user_name"`
	NickName     string    `json:"nick_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Sex          string    `json:"sex"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	Remark       string    `json:"remark,omitempty"`
	CreateBy     string    `json:"create_by"`
	UpdateBy     string    `json:"update_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsActiveUser() bool {
	return u.Status == StatusActive
}

// UserInfo is a user with its associations and the choices for editing them.
type UserInfo struct {
	User    *User        `json:"user,omitempty"`
	RoleIDs []int64      `json:"role_ids,omitempty"`
	PostIDs []int64      `json:"post_ids,omitempty"`
	Roles   []*role.Role `json:"roles,omitempty"`
	Posts   []*post.Post `json:"posts,omitempty"`
}

// AuthRoleInfo lists assignable roles flagged with the ones user holds.
type AuthRoleInfo struct {
	User  *User        `json:"user"`
	Roles []*role.Role `json:"roles"`
}

type ListResult struct {
	Rows  []*User `json:"rows"`
	Total int64   `json:"total"`
}

// Option is one entry of a user selection box.
type Option struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	NickName string `json:"nick_name"`
}

// DuplicateKeyError is returned by repositories when a unique index on
// field rejects a write.
type DuplicateKeyError struct {
	Field string
	Cause error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Cause
}

func ToDataModel(u *User) *userDatamodel.SysUser {
	return &userDatamodel.SysUser{
		ID:        u.ID,
		DeptID:    u.DeptID,
		UserName:  u.UserName,
		NickName:  u.NickName,
		Email:     u.Email,
		Phone:     u.Phone,
		Sex:       u.Sex,
		Password:  u.PasswordHash,
		Status:    u.Status,
		Remark:    u.Remark,
		CreateBy:  u.CreateBy,
		UpdateBy:  u.UpdateBy,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.SysUser) *User {
	return &User{
		ID:           u.ID,
		DeptID:       u.DeptID,
		UserName:     u.UserName,
		NickName:     u.NickName,
		Email:        u.Email,
		Phone:        u.Phone,
		Sex:          u.Sex,
		PasswordHash: u.Password,
		Status:       u.Status,
		Remark:       u.Remark,
		CreateBy:     u.CreateBy,
		UpdateBy:     u.UpdateBy,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
