package post

import "time"

type SysPost struct {
	ID        int64     `gorm:"column:post_id;primaryKey;autoIncrement"`
	PostCode  string    `gorm:"column:post_code;size:64;not null;uniqueIndex"`
	PostName  string    `gorm:"column:post_name;size:50;not null"`
	PostSort  int       `gorm:"column:post_sort;not null;default:0"`
	Status    string    `gorm:"column:status;size:1;not null;default:'0'"`
	Remark    string    `gorm:"column:remark;size:500"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SysPost) TableName() string { return "sys_post" }
