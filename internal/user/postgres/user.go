package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/core/database"
	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var m userDatamodel.SysUser
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&m), nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, userIDs []int64) ([]*user.User, error) {
	users := make([]*user.User, 0, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	var models []*userDatamodel.SysUser
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("user_id").Find(&models).Error; err != nil {
		return nil, err
	}
	for _, m := range models {
		users = append(users, user.FromDataModel(m))
	}
	return users, nil
}

func (r *UserRepository) FindIDByUserName(ctx context.Context, userName string) (int64, error) {
	return r.findID(ctx, "user_name", userName)
}

func (r *UserRepository) FindIDByPhone(ctx context.Context, phone string) (int64, error) {
	return r.findID(ctx, "phone", phone)
}

func (r *UserRepository) FindIDByEmail(ctx context.Context, email string) (int64, error) {
	return r.findID(ctx, "email", email)
}

func (r *UserRepository) findID(ctx context.Context, column, value string) (int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.SysUser{}).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Limit(1).
		Pluck("user_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// withScope restricts tx to the rows scope permits.
func withScope(tx *gorm.DB, scope auth.ScopeFilter) *gorm.DB {
	if scope.All {
		return tx
	}
	switch {
	case len(scope.DeptIDs) > 0 && scope.UserID != 0:
		return tx.Where("(dept_id IN ? OR user_id = ?)", scope.DeptIDs, scope.UserID)
	case len(scope.DeptIDs) > 0:
		return tx.Where("dept_id IN ?", scope.DeptIDs)
	default:
		return tx.Where("user_id = ?", scope.UserID)
	}
}

func (r *UserRepository) List(ctx context.Context, q user.ListQuery, scope auth.ScopeFilter, deptIDs []int64) ([]*user.User, int64, error) {
	tx := withScope(r.db.WithContext(ctx).Model(&userDatamodel.SysUser{}), scope)

	if q.UserName != "" {
		tx = tx.Where("user_name LIKE ?", "%"+q.UserName+"%")
	}
	if q.Phone != "" {
		tx = tx.Where("phone LIKE ?", "%"+q.Phone+"%")
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if len(deptIDs) > 0 {
		tx = tx.Where("dept_id IN ?", deptIDs)
	}
	if q.BeginTime != nil {
		tx = tx.Where("created_at >= ?", *q.BeginTime)
	}
	if q.EndTime != nil {
		tx = tx.Where("created_at <= ?", *q.EndTime)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*userDatamodel.SysUser
	err := tx.Order("user_id ASC").Limit(q.Limit).Offset(q.Offset).Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	users := make([]*user.User, 0, len(models))
	for _, m := range models {
		users = append(users, user.FromDataModel(m))
	}
	return users, total, nil
}

func (r *UserRepository) ListOptions(ctx context.Context, scope auth.ScopeFilter) ([]*user.User, error) {
	var models []*userDatamodel.SysUser
	err := withScope(r.db.WithContext(ctx).Model(&userDatamodel.SysUser{}), scope).
		Select("user_id", "user_name", "nick_name", "dept_id").
		Order("user_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(models))
	for _, m := range models {
		users = append(users, user.FromDataModel(m))
	}
	return users, nil
}

// Create inserts the user with its role and post rows in one transaction
// and sets u.ID.
func (r *UserRepository) Create(ctx context.Context, u *user.User, roleIDs, postIDs []int64) (int64, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := user.ToDataModel(u)
		res := tx.Create(m)
		if res.Error != nil {
			return translateError(res.Error)
		}
		rows = res.RowsAffected
		u.ID = m.ID
		u.CreatedAt = m.CreatedAt
		u.UpdatedAt = m.UpdatedAt

		if err := insertRoles(tx, m.ID, roleIDs); err != nil {
			return err
		}
		return insertPosts(tx, m.ID, postIDs)
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) (int64, error) {
	res := r.db.WithContext(ctx).Model(&userDatamodel.SysUser{}).
		Where("user_id = ?", u.ID).
		Updates(map[string]interface{}{
			"dept_id":   u.DeptID,
			"user_name": u.UserName,
			"nick_name": u.NickName,
			"email":     u.Email,
			"phone":     u.Phone,
			"sex":       u.Sex,
			"status":    u.Status,
			"remark":    u.Remark,
			"update_by": u.UpdateBy,
		})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, userID int64, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&userDatamodel.SysUser{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteByIDs soft-deletes the users and removes their join rows.
func (r *UserRepository) DeleteByIDs(ctx context.Context, userIDs []int64) (int64, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN ?", userIDs).Delete(&userDatamodel.SysUserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id IN ?", userIDs).Delete(&userDatamodel.SysUserPost{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id IN ?", userIDs).Delete(&userDatamodel.SysUser{})
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ReplaceRoles swaps the user's roles for roleIDs while holding the user
// row lock. Any unknown role rolls the whole change back.
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.SysUserRole{}).Error; err != nil {
			return err
		}
		return insertRoles(tx, userID, roleIDs)
	})
}

func (r *UserRepository) ReplacePosts(ctx context.Context, userID int64, postIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.SysUserPost{}).Error; err != nil {
			return err
		}
		return insertPosts(tx, userID, postIDs)
	})
}

// lockUser takes the row lock that serializes association writes for one
// user. SQLite has a single writer, so the lock clause is left out there.
func (r *UserRepository) lockUser(tx *gorm.DB, userID int64) error {
	q := tx
	if !database.IsSQLite(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m userDatamodel.SysUser
	err := q.Select("user_id").Where("user_id = ?", userID).First(&m).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func insertRoles(tx *gorm.DB, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	var found int64
	if err := tx.Model(&roleDatamodel.SysRole{}).Where("role_id IN ?", roleIDs).Count(&found).Error; err != nil {
		return err
	}
	if found != int64(len(roleIDs)) {
		return errors.ErrRoleNotFound
	}

	links := make([]userDatamodel.SysUserRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		links = append(links, userDatamodel.SysUserRole{UserID: userID, RoleID: id})
	}
	return tx.Create(&links).Error
}

func insertPosts(tx *gorm.DB, userID int64, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	var found int64
	if err := tx.Model(&postDatamodel.SysPost{}).Where("post_id IN ?", postIDs).Count(&found).Error; err != nil {
		return err
	}
	if found != int64(len(postIDs)) {
		return errors.ErrPostNotFound
	}

	links := make([]userDatamodel.SysUserPost, 0, len(postIDs))
	for _, id := range postIDs {
		links = append(links, userDatamodel.SysUserPost{UserID: userID, PostID: id})
	}
	return tx.Create(&links).Error
}
