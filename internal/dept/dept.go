package dept

import (
	"sort"

	deptDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
)

type Dept struct {
	ID       int64  `json:"dept_id"`
	ParentID int64  `json:"parent_id"`
	DeptName string `json:"dept_name"`
	OrderNum int    `json:"order_num"`
	Status   string `json:"status"`
}

// TreeNode is one department in the selection tree.
type TreeNode struct {
	ID       int64       `json:"id"`
	Label    string      `json:"label"`
	Disabled bool        `json:"disabled"`
	Children []*TreeNode `json:"children,omitempty"`
}

func FromDataModel(m *deptDatamodel.SysDept) *Dept {
	return &Dept{
		ID:       m.ID,
		ParentID: m.ParentID,
		DeptName: m.DeptName,
		OrderNum: m.OrderNum,
		Status:   m.Status,
	}
}

// BuildTree links depts by parent id. A department whose parent is not in
// the input becomes a root, so a filtered list still yields a tree.
func BuildTree(depts []*Dept) []*TreeNode {
	sorted := make([]*Dept, len(depts))
	copy(sorted, depts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ParentID != sorted[j].ParentID {
			return sorted[i].ParentID < sorted[j].ParentID
		}
		return sorted[i].OrderNum < sorted[j].OrderNum
	})

	nodes := make(map[int64]*TreeNode, len(sorted))
	for _, d := range sorted {
		nodes[d.ID] = &TreeNode{ID: d.ID, Label: d.DeptName, Disabled: d.Status != "0"}
	}

	roots := make([]*TreeNode, 0)
	for _, d := range sorted {
		node := nodes[d.ID]
		if parent, ok := nodes[d.ParentID]; ok && d.ParentID != d.ID {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}
