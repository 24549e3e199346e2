package role

import (
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
)

const StatusNormal = "0"

type Role struct {
	ID        int64  `json:"role_id"`
	RoleName  string `json:"role_name"`
	RoleKey   string `json:"role_key"`
	RoleSort  int    `json:"role_sort"`
	DataScope string `json:"data_scope"`
	Status    string `json:"status"`
	IsAdmin   bool   `json:"is_admin"`
	// Flag marks the roles currently held by the user being edited.
	Flag bool `json:"flag"`
}

func FromDataModel(m *roleDatamodel.SysRole) *Role {
	return &Role{
		ID:        m.ID,
		RoleName:  m.RoleName,
		RoleKey:   m.RoleKey,
		RoleSort:  m.RoleSort,
		DataScope: m.DataScope,
		Status:    m.Status,
		IsAdmin:   m.IsAdmin,
	}
}
