package auth

import (
	"log/slog"
	"strings"

	appErrors "github.com/frahmantamala/account-admin/internal"
)

// Operation names a gated service entry point.
type Operation string

const (
	OpListUsers     Operation = "user.list"
	OpQueryUser     Operation = "user.query"
	OpCreateUser    Operation = "user.create"
	OpUpdateUser    Operation = "user.update"
	OpDeleteUser    Operation = "user.delete"
	OpResetPassword Operation = "user.reset_password"
	OpChangeStatus  Operation = "user.change_status"
	OpAuthRoles     Operation = "user.auth_roles"
	OpAssignRoles   Operation = "user.assign_roles"
	OpAssignPosts   Operation = "user.assign_posts"
	OpDeptTree      Operation = "dept.tree"
	OpListPosts     Operation = "post.list"
)

const PermissionAll = "*:*:*"

var operationPermissions = map[Operation]string{
	OpListUsers:     "system:user:list",
	OpQueryUser:     "system:user:query",
	OpCreateUser:    "system:user:add",
	OpUpdateUser:    "system:user:edit",
	OpDeleteUser:    "system:user:remove",
	OpResetPassword: "system:user:resetPwd",
	OpChangeStatus:  "system:user:edit",
	OpAuthRoles:     "system:user:query",
	OpAssignRoles:   "system:user:edit",
	OpAssignPosts:   "system:user:edit",
	OpDeptTree:      "system:user:list",
	OpListPosts:     "system:user:query",
}

// PermissionFor returns the permission string gating op.
func PermissionFor(op Operation) (string, bool) {
	perm, ok := operationPermissions[op]
	return perm, ok
}

type PermissionChecker interface {
	Require(p *Principal, op Operation) error
	HasPermission(userPermissions []string, permission string) bool
}

type DefaultPermissionChecker struct {
	logger *slog.Logger
}

func NewPermissionChecker(logger *slog.Logger) *DefaultPermissionChecker {
	return &DefaultPermissionChecker{logger: logger}
}

// Require fails with ErrPermissionDenied unless p holds the permission of op.
// Unknown operations are always denied.
func (c *DefaultPermissionChecker) Require(p *Principal, op Operation) error {
	if p == nil {
		return appErrors.ErrPermissionDenied
	}
	perm, ok := operationPermissions[op]
	if !ok {
		c.logger.Error("no permission mapped for operation", "operation", op)
		return appErrors.ErrPermissionDenied
	}
	if c.HasPermission(p.Permissions, perm) {
		return nil
	}
	c.logger.Warn("access denied",
		"rule", "permission",
		"principal_id", p.ID,
		"operation", op,
		"required_permission", perm)
	return appErrors.ErrPermissionDenied
}

func (c *DefaultPermissionChecker) HasPermission(userPermissions []string, permission string) bool {
	for _, granted := range userPermissions {
		if matchPermission(granted, permission) {
			return true
		}
	}
	return false
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, required := range requiredPermissions {
		if c.HasPermission(userPermissions, required) {
			return true
		}
	}
	return false
}

// matchPermission compares colon separated segments, "*" matching any one.
func matchPermission(granted, required string) bool {
	if granted == PermissionAll || granted == required {
		return true
	}
	g := strings.Split(granted, ":")
	r := strings.Split(required, ":")
	if len(g) != len(r) {
		return false
	}
	for i := range g {
		if g[i] != "*" && g[i] != r[i] {
			return false
		}
	}
	return true
}
