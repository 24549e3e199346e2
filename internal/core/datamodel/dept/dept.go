package dept

import "time"

type SysDept struct {
	ID        int64     `gorm:"column:dept_id;primaryKey;autoIncrement" db:"dept_id"`
	ParentID  int64     `gorm:"column:parent_id;not null;default:0;index" db:"parent_id"`
	DeptName  string    `gorm:"column:dept_name;size:30;not null" db:"dept_name"`
	OrderNum  int       `gorm:"column:order_num;not null;default:0" db:"order_num"`
	Status    string    `gorm:"column:status;size:1;not null;default:'0'" db:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (SysDept) TableName() string { return "sys_dept" }
