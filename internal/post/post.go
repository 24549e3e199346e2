package post

import (
	"time"

	postDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/post"
)

const StatusNormal = "0"

type Post struct {
	ID        int64     `json:"post_id"`
	PostCode  string    `json:"post_code"`
	PostName  string    `json:"post_name"`
	PostSort  int       `json:"post_sort"`
	Status    string    `json:"status"`
	Remark    string    `json:"remark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) IsActivePost() bool {
	return p.Status == StatusNormal
}

func (p *Post) ToResponse() PostResponse {
	return PostResponse{
		ID:       p.ID,
		PostCode: p.PostCode,
		PostName: p.PostName,
	}
}

func ToDataModel(p *Post) *postDatamodel.SysPost {
	return &postDatamodel.SysPost{
		ID:        p.ID,
		PostCode:  p.PostCode,
		PostName:  p.PostName,
		PostSort:  p.PostSort,
		Status:    p.Status,
		Remark:    p.Remark,
		CreatedAt: p.CreatedAt,
	}
}

func FromDataModel(m *postDatamodel.SysPost) *Post {
	return &Post{
		ID:        m.ID,
		PostCode:  m.PostCode,
		PostName:  m.PostName,
		PostSort:  m.PostSort,
		Status:    m.Status,
		Remark:    m.Remark,
		CreatedAt: m.CreatedAt,
	}
}
