package user

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"

	errors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/core/events"
	"github.com/frahmantamala/account-admin/internal/post"
	"github.com/frahmantamala/account-admin/internal/role"
	"golang.org/x/sync/errgroup"
)

type RepositoryAPI interface {
	HolderLookup
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByIDs(ctx context.Context, userIDs []int64) ([]*User, error)
	List(ctx context.Context, q ListQuery, scope auth.ScopeFilter, deptIDs []int64) ([]*User, int64, error)
	ListOptions(ctx context.Context, scope auth.ScopeFilter) ([]*User, error)
	Create(ctx context.Context, u *User, roleIDs, postIDs []int64) (int64, error)
	Update(ctx context.Context, u *User) (int64, error)
	UpdateFields(ctx context.Context, userID int64, fields map[string]interface{}) (int64, error)
	DeleteByIDs(ctx context.Context, userIDs []int64) (int64, error)
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ReplacePosts(ctx context.Context, userID int64, postIDs []int64) error
}

type ScopeGuard interface {
	CheckUserAllowed(p *auth.Principal, targetUserID int64) error
	CheckRoleAssignable(p *auth.Principal, roleID int64, isAdmin bool) error
	CheckUserDataScope(ctx context.Context, p *auth.Principal, target auth.ScopeTarget) error
	Filter(ctx context.Context, p *auth.Principal) (auth.ScopeFilter, error)
}

type RoleCatalog interface {
	ListAssignable(ctx context.Context, p *auth.Principal) ([]*role.Role, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*role.Role, error)
	RoleIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

type PostCatalog interface {
	ListActive(ctx context.Context) ([]*post.Post, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	PostIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Dependencies groups the collaborators of Service.
type Dependencies struct {
	Repo      RepositoryAPI
	Guard     ScopeGuard
	Perms     auth.PermissionChecker
	Roles     RoleCatalog
	Posts     PostCatalog
	Depts     auth.DeptResolver
	Hasher    PasswordHasher
	Publisher EventPublisher
	Logger    *slog.Logger
}

type Service struct {
	repo      RepositoryAPI
	guard     ScopeGuard
	perms     auth.PermissionChecker
	unique    *UniquenessChecker
	roles     RoleCatalog
	posts     PostCatalog
	depts     auth.DeptResolver
	hasher    PasswordHasher
	publisher EventPublisher
	logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	return &Service{
		repo:      deps.Repo,
		guard:     deps.Guard,
		perms:     deps.Perms,
		unique:    NewUniquenessChecker(deps.Repo, deps.Logger),
		roles:     deps.Roles,
		posts:     deps.Posts,
		depts:     deps.Depts,
		hasher:    deps.Hasher,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

func (s *Service) List(ctx context.Context, p *auth.Principal, q ListQuery) (*ListResult, error) {
	if err := s.perms.Require(p, auth.OpListUsers); err != nil {
		return nil, err
	}
	q.Normalize()

	scope, err := s.guard.Filter(ctx, p)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return &ListResult{Rows: []*User{}, Total: 0}, nil
	}

	var deptIDs []int64
	if q.DeptID != 0 {
		deptIDs, err = s.depts.DescendantIDs(ctx, q.DeptID)
		if err != nil {
			return nil, errors.NewInternalError("failed to resolve department filter", err)
		}
	}

	rows, total, err := s.repo.List(ctx, q, scope, deptIDs)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	return &ListResult{Rows: rows, Total: total}, nil
}

// GetUser returns one user, or with includeAssociations also its role and
// post ids plus the roles and posts to choose from. userID 0 with
// associations yields only the choices, for a new-user form.
func (s *Service) GetUser(ctx context.Context, p *auth.Principal, userID int64, includeAssociations bool) (*UserInfo, error) {
	if err := s.perms.Require(p, auth.OpQueryUser); err != nil {
		return nil, err
	}

	info := &UserInfo{}
	if userID > 0 {
		u, err := s.guardedTarget(ctx, p, userID)
		if err != nil {
			return nil, err
		}
		info.User = u
	} else if !includeAssociations {
		return nil, errors.NewValidationFieldError("user_id", "user_id is required", errors.ErrCodeValidationFailed)
	}

	if !includeAssociations {
		return info, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roles, err := s.roles.ListAssignable(gctx, p)
		info.Roles = roles
		return err
	})
	g.Go(func() error {
		posts, err := s.posts.ListActive(gctx)
		info.Posts = posts
		return err
	})
	if userID > 0 {
		g.Go(func() error {
			ids, err := s.roles.RoleIDsByUser(gctx, userID)
			info.RoleIDs = ids
			return err
		})
		g.Go(func() error {
			ids, err := s.posts.PostIDsByUser(gctx, userID)
			info.PostIDs = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load user associations", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to load user associations", err)
	}
	if !p.Superuser && info.RoleIDs != nil {
		info.RoleIDs = visibleRoleIDs(info.RoleIDs, info.Roles)
	}
	return info, nil
}

// visibleRoleIDs keeps the held ids that appear among the assignable roles,
// so the superuser role never reaches other callers.
func visibleRoleIDs(held []int64, assignable []*role.Role) []int64 {
	visible := make(map[int64]bool, len(assignable))
	for _, r := range assignable {
		visible[r.ID] = true
	}
	out := make([]int64, 0, len(held))
	for _, id := range held {
		if visible[id] {
			out = append(out, id)
		}
	}
	return out
}

// Options lists the users p may see, trimmed for selection boxes.
func (s *Service) Options(ctx context.Context, p *auth.Principal) ([]*Option, error) {
	if err := s.perms.Require(p, auth.OpListUsers); err != nil {
		return nil, err
	}
	scope, err := s.guard.Filter(ctx, p)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []*Option{}, nil
	}

	users, err := s.repo.ListOptions(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list user options", "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	opts := make([]*Option, 0, len(users))
	for _, u := range users {
		opts = append(opts, &Option{UserID: u.ID, UserName: u.UserName, NickName: u.NickName})
	}
	return opts, nil
}

func (s *Service) Create(ctx context.Context, p *auth.Principal, dto CreateUserDTO) (int64, error) {
	if err := s.perms.Require(p, auth.OpCreateUser); err != nil {
		return 0, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return 0, appErr
	}
	// dept 0 is outside every scope but the whole system
	if err := s.guard.CheckUserDataScope(ctx, p, auth.ScopeTarget{DeptID: dto.DeptID}); err != nil {
		return 0, err
	}

	roleIDs := distinctIDs(dto.RoleIDs)
	if err := s.checkRolesAssignable(ctx, p, roleIDs); err != nil {
		return 0, err
	}
	postIDs := distinctIDs(dto.PostIDs)
	if err := s.checkPostsExist(ctx, postIDs); err != nil {
		return 0, err
	}

	cand := Candidate{UserName: dto.UserName, Phone: dto.Phone, Email: dto.Email}
	if err := s.unique.Check(ctx, "add", cand); err != nil {
		return 0, err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return 0, errors.NewInternalError("failed to hash password", err)
	}

	status := dto.Status
	if status == "" {
		status = StatusActive
	}
	u := &User{
		DeptID:       dto.DeptID,
		UserName:     dto.UserName,
		NickName:     dto.NickName,
		Email:        dto.Email,
		Phone:        dto.Phone,
		Sex:          dto.Sex,
		PasswordHash: hash,
		Status:       status,
		Remark:       dto.Remark,
		CreateBy:     p.UserName,
	}

	rows, err := s.repo.Create(ctx, u, roleIDs, postIDs)
	if err != nil {
		return 0, s.writeError(err, "add", dto.UserName)
	}

	s.logger.Info("user created", "user_id", u.ID, "user_name", u.UserName, "by", p.UserName)
	s.publish(ctx, p, events.EventTypeUserCreated, []int64{u.ID}, map[string]interface{}{
		"user_name": u.UserName,
		"role_ids":  roleIDs,
		"post_ids":  postIDs,
	})
	return rows, nil
}

// Update persists profile fields. Role and post associations are left as
// they are.
func (s *Service) Update(ctx context.Context, p *auth.Principal, dto UpdateUserDTO) (int64, error) {
	if err := s.perms.Require(p, auth.OpUpdateUser); err != nil {
		return 0, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return 0, appErr
	}

	existing, err := s.guardedTarget(ctx, p, dto.UserID)
	if err != nil {
		return 0, err
	}
	// an omitted dept_id keeps the current department
	deptID := dto.DeptID
	if deptID == 0 {
		deptID = existing.DeptID
	}
	if deptID != existing.DeptID {
		if err := s.guard.CheckUserDataScope(ctx, p, auth.ScopeTarget{DeptID: deptID}); err != nil {
			return 0, err
		}
	}

	cand := Candidate{UserID: dto.UserID, UserName: dto.UserName, Phone: dto.Phone, Email: dto.Email}
	if err := s.unique.Check(ctx, "modify", cand); err != nil {
		return 0, err
	}

	status := dto.Status
	if status == "" {
		status = existing.Status
	}
	u := &User{
		ID:       dto.UserID,
		DeptID:   deptID,
		UserName: dto.UserName,
		NickName: dto.NickName,
		Email:    dto.Email,
		Phone:    dto.Phone,
		Sex:      dto.Sex,
		Status:   status,
		Remark:   dto.Remark,
		UpdateBy: p.UserName,
	}

	rows, err := s.repo.Update(ctx, u)
	if err != nil {
		return 0, s.writeError(err, "modify", dto.UserName)
	}

	s.publish(ctx, p, events.EventTypeUserUpdated, []int64{u.ID}, map[string]interface{}{
		"user_name": u.UserName,
	})
	return rows, nil
}

// Delete soft-deletes every existing user in userIDs. Unknown ids are
// skipped.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, userIDs []int64) (int64, error) {
	if err := s.perms.Require(p, auth.OpDeleteUser); err != nil {
		return 0, err
	}
	userIDs = distinctIDs(userIDs)
	if slices.Contains(userIDs, p.ID) {
		return 0, errors.ErrSelfDelete
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	for _, id := range userIDs {
		if err := s.guard.CheckUserAllowed(p, id); err != nil {
			return 0, err
		}
	}

	existing, err := s.repo.GetByIDs(ctx, userIDs)
	if err != nil {
		return 0, errors.NewInternalError("failed to load users", err)
	}
	ids := make([]int64, 0, len(existing))
	for _, u := range existing {
		if err := s.guard.CheckUserDataScope(ctx, p, auth.ScopeTarget{UserID: u.ID, DeptID: u.DeptID}); err != nil {
			return 0, err
		}
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	rows, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to delete users", "user_ids", ids, "error", err)
		return 0, errors.NewInternalError("failed to delete users", err)
	}

	s.logger.Info("users deleted", "user_ids", ids, "rows", rows, "by", p.UserName)
	s.publish(ctx, p, events.EventTypeUserDeleted, ids, nil)
	return rows, nil
}

func (s *Service) ResetPassword(ctx context.Context, p *auth.Principal, dto ResetPasswordDTO) (int64, error) {
	if err := s.perms.Require(p, auth.OpResetPassword); err != nil {
		return 0, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return 0, appErr
	}
	if _, err := s.guardedTarget(ctx, p, dto.UserID); err != nil {
		return 0, err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return 0, errors.NewInternalError("failed to hash password", err)
	}

	rows, err := s.repo.UpdateFields(ctx, dto.UserID, map[string]interface{}{
		"password":  hash,
		"update_by": p.UserName,
	})
	if err != nil {
		return 0, errors.NewInternalError("failed to reset password", err)
	}

	s.publish(ctx, p, events.EventTypePasswordReset, []int64{dto.UserID}, nil)
	return rows, nil
}

func (s *Service) ChangeStatus(ctx context.Context, p *auth.Principal, dto ChangeStatusDTO) (int64, error) {
	if err := s.perms.Require(p, auth.OpChangeStatus); err != nil {
		return 0, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return 0, appErr
	}
	if _, err := s.guardedTarget(ctx, p, dto.UserID); err != nil {
		return 0, err
	}

	rows, err := s.repo.UpdateFields(ctx, dto.UserID, map[string]interface{}{
		"status":    dto.Status,
		"update_by": p.UserName,
	})
	if err != nil {
		return 0, errors.NewInternalError("failed to change status", err)
	}

	s.publish(ctx, p, events.EventTypeUserStatusChanged, []int64{dto.UserID}, map[string]interface{}{
		"status": dto.Status,
	})
	return rows, nil
}

// guardedTarget loads userID after the superuser and scope checks. A
// missing user is reported as not found only to principals that could
// see it if it existed.
func (s *Service) guardedTarget(ctx context.Context, p *auth.Principal, userID int64) (*User, error) {
	if err := s.guard.CheckUserAllowed(p, userID); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.NewInternalError("failed to load user", err)
		}
		scope, ferr := s.guard.Filter(ctx, p)
		if ferr != nil {
			return nil, ferr
		}
		if scope.All {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrPermissionDenied
	}

	if err := s.guard.CheckUserDataScope(ctx, p, auth.ScopeTarget{UserID: u.ID, DeptID: u.DeptID}); err != nil {
		return nil, err
	}
	return u, nil
}

// checkRolesAssignable fails when a role is unknown or reserved.
func (s *Service) checkRolesAssignable(ctx context.Context, p *auth.Principal, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	roles, err := s.roles.GetByIDs(ctx, roleIDs)
	if err != nil {
		return errors.NewInternalError("failed to load roles", err)
	}
	if len(roles) != len(roleIDs) {
		return errors.ErrRoleNotFound
	}
	for _, r := range roles {
		if err := s.guard.CheckRoleAssignable(p, r.ID, r.IsAdmin); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkPostsExist(ctx context.Context, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	found, err := s.posts.ExistingIDs(ctx, postIDs)
	if err != nil {
		return errors.NewInternalError("failed to load posts", err)
	}
	for _, id := range postIDs {
		if !found[id] {
			return errors.ErrPostNotFound
		}
	}
	return nil
}

// writeError maps repository failures of create and update.
func (s *Service) writeError(err error, action, userName string) error {
	var dup *DuplicateKeyError
	if stderrors.As(err, &dup) {
		s.logger.Warn("unique index rejected write", "field", dup.Field, "user_name", userName)
		return ConflictFor(action, userName, dup.Field)
	}
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr
	}
	s.logger.Error("failed to write user", "action", action, "user_name", userName, "error", err)
	return errors.NewInternalError("failed to save user", err)
}

func (s *Service) publish(ctx context.Context, p *auth.Principal, eventType string, userIDs []int64, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	ev := events.NewAccountEvent(eventType, p.ID, p.UserName, userIDs, data)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish account event", "event_type", eventType, "error", err)
	}
}
