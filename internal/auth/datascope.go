package auth

import (
	"context"
	"log/slog"
	"slices"

	appErrors "github.com/frahmantamala/account-admin/internal"
)

// DeptResolver expands a department into itself plus all of its descendants.
type DeptResolver interface {
	DescendantIDs(ctx context.Context, deptID int64) ([]int64, error)
}

// ScopeTarget is the part of a user record the guard looks at.
type ScopeTarget struct {
	UserID int64
	DeptID int64
}

// ScopeFilter is the union of a principal's role scopes, usable as a row
// filter. A zero ScopeFilter matches nothing.
type ScopeFilter struct {
	All     bool
	DeptIDs []int64
	UserID  int64
}

func (f ScopeFilter) Permits(userID, deptID int64) bool {
	if f.All {
		return true
	}
	if f.UserID != 0 && f.UserID == userID {
		return true
	}
	_, found := slices.BinarySearch(f.DeptIDs, deptID)
	return found
}

func (f ScopeFilter) Empty() bool {
	return !f.All && len(f.DeptIDs) == 0 && f.UserID == 0
}

// DataScopeGuard decides which user records a principal may see or modify.
type DataScopeGuard struct {
	depts       DeptResolver
	superuserID int64
	logger      *slog.Logger
}

func NewDataScopeGuard(depts DeptResolver, superuserID int64, logger *slog.Logger) *DataScopeGuard {
	return &DataScopeGuard{
		depts:       depts,
		superuserID: superuserID,
		logger:      logger,
	}
}

func (g *DataScopeGuard) IsSuperuserAccount(userID int64) bool {
	return userID == g.superuserID
}

// CheckUserAllowed protects the superuser account from everyone else.
func (g *DataScopeGuard) CheckUserAllowed(p *Principal, targetUserID int64) error {
	if p == nil {
		return appErrors.ErrPermissionDenied
	}
	if p.Superuser {
		return nil
	}
	if g.IsSuperuserAccount(targetUserID) {
		g.deny(p, "superuser_protection", "target_user_id", targetUserID)
		return appErrors.ErrPermissionDenied
	}
	return nil
}

// CheckRoleAssignable hides the superuser role from non-superusers.
func (g *DataScopeGuard) CheckRoleAssignable(p *Principal, roleID int64, isAdmin bool) error {
	if p == nil {
		return appErrors.ErrPermissionDenied
	}
	if isAdmin && !p.Superuser {
		g.deny(p, "superuser_role", "role_id", roleID)
		return appErrors.ErrPermissionDenied
	}
	return nil
}

func (g *DataScopeGuard) CheckUserDataScope(ctx context.Context, p *Principal, target ScopeTarget) error {
	if p == nil {
		return appErrors.ErrPermissionDenied
	}
	if p.Superuser {
		return nil
	}

	filter, err := g.Filter(ctx, p)
	if err != nil {
		return err
	}
	if !filter.Permits(target.UserID, target.DeptID) {
		g.deny(p, "data_scope", "target_user_id", target.UserID, "target_dept_id", target.DeptID)
		return appErrors.ErrPermissionDenied
	}
	return nil
}

// Filter folds every role of p into one ScopeFilter.
func (g *DataScopeGuard) Filter(ctx context.Context, p *Principal) (ScopeFilter, error) {
	if p == nil {
		return ScopeFilter{}, nil
	}
	if p.Superuser {
		return ScopeFilter{All: true}, nil
	}

	var f ScopeFilter
	for _, role := range p.Roles {
		switch role.DataScope {
		case DataScopeAll:
			return ScopeFilter{All: true}, nil
		case DataScopeCustom:
			f.DeptIDs = append(f.DeptIDs, role.CustomDeptIDs...)
		case DataScopeDept:
			if p.DeptID != 0 {
				f.DeptIDs = append(f.DeptIDs, p.DeptID)
			}
		case DataScopeDeptAndChild:
			if p.DeptID == 0 {
				continue
			}
			ids, err := g.depts.DescendantIDs(ctx, p.DeptID)
			if err != nil {
				return ScopeFilter{}, appErrors.NewInternalError("failed to resolve department scope", err)
			}
			f.DeptIDs = append(f.DeptIDs, ids...)
		case DataScopeSelf:
			f.UserID = p.ID
		default:
			g.logger.Warn("unknown data scope ignored", "role_id", role.RoleID, "data_scope", role.DataScope)
		}
	}

	slices.Sort(f.DeptIDs)
	f.DeptIDs = slices.Compact(f.DeptIDs)
	return f, nil
}

func (g *DataScopeGuard) deny(p *Principal, rule string, attrs ...any) {
	args := append([]any{"rule", rule, "principal_id", p.ID}, attrs...)
	g.logger.Warn("access denied", args...)
}
