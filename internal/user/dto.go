package user

import (
	"slices"
	"time"

	errors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/core/common/validation"
)

type CreateUserDTO struct {
	DeptID   int64   `json:"dept_id"`
	UserName string  `json:"user_name"`
	NickName string  `json:"nick_name"`
	Password string  `json:"password"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Sex      string  `json:"sex"`
	Status   string  `json:"status"`
	Remark   string  `json:"remark"`
	RoleIDs  []int64 `json:"role_ids"`
	PostIDs  []int64 `json:"post_ids"`
}

func (d CreateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_name", d.UserName).Required().MinLength(2).MaxLength(30)
	v.Field("nick_name", d.NickName).Required().MaxLength(30)
	v.Add(validation.ValidatePassword("password", d.Password))
	v.Field("email", d.Email).Email().MaxLength(50)
	v.Field("phone", d.Phone).Phone()
	v.Field("sex", d.Sex).OneOf("0", "1", "2")
	v.Field("status", d.Status).OneOf(StatusActive, StatusDisabled)
	v.Field("remark", d.Remark).MaxLength(500)
	v.Field("role_ids", d.RoleIDs).Positive()
	v.Field("post_ids", d.PostIDs).Positive()
	return v.Validate()
}

// UpdateUserDTO carries profile fields only; roles and posts have their
// own assignment operations.
type UpdateUserDTO struct {
	UserID   int64  `json:"user_id"`
	DeptID   int64  `json:"dept_id"`
	UserName string `json:"user_name"`
	NickName string `json:"nick_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Sex      string `json:"sex"`
	Status   string `json:"status"`
	Remark   string `json:"remark"`
}

func (d UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Positive()
	v.Field("user_name", d.UserName).Required().MinLength(2).MaxLength(30)
	v.Field("nick_name", d.NickName).Required().MaxLength(30)
	v.Field("email", d.Email).Email().MaxLength(50)
	v.Field("phone", d.Phone).Phone()
	v.Field("sex", d.Sex).OneOf("0", "1", "2")
	v.Field("status", d.Status).OneOf(StatusActive, StatusDisabled)
	v.Field("remark", d.Remark).MaxLength(500)
	return v.Validate()
}

type ResetPasswordDTO struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

func (d ResetPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Positive()
	v.Add(validation.ValidatePassword("password", d.Password))
	return v.Validate()
}

type ChangeStatusDTO struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

func (d ChangeStatusDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Positive()
	v.Field("status", d.Status).Custom(func(value interface{}) *errors.AppError {
		if s, _ := value.(string); s != StatusActive && s != StatusDisabled {
			return errors.NewValidationError("status must be 0 (active) or 1 (disabled)", errors.ErrCodeInvalidStatus)
		}
		return nil
	})
	return v.Validate()
}

type AssignRolesDTO struct {
	UserID  int64   `json:"user_id"`
	RoleIDs []int64 `json:"role_ids"`
}

func (d AssignRolesDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Positive()
	v.Field("role_ids", d.RoleIDs).Positive()
	return v.Validate()
}

type AssignPostsDTO struct {
	UserID  int64   `json:"user_id"`
	PostIDs []int64 `json:"post_ids"`
}

func (d AssignPostsDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Positive()
	v.Field("post_ids", d.PostIDs).Positive()
	return v.Validate()
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// ListQuery filters the user list. Zero values mean "no filter".
type ListQuery struct {
	UserName  string
	Phone     string
	Status    string
	DeptID    int64
	BeginTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

func (q *ListQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

type RowsResponse struct {
	Rows int64 `json:"rows"`
}

// distinctIDs keeps the first occurrence of every id.
func distinctIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
