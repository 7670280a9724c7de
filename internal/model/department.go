package model

import "gorm.io/gorm"

// Department 院系表，对应 departments（参考数据，增删改由外部管理）
type Department struct {
	DepartmentID string `gorm:"type:uuid;primaryKey"          json:"department_id"`
	Name         string `gorm:"type:varchar(100);not null"    json:"name"`
	FacultyName  string `gorm:"type:varchar(100)"             json:"faculty_name,omitempty"`
	IsActive     bool   `gorm:"not null;default:true"         json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// BeforeCreate 生成主键
func (d *Department) BeforeCreate(_ *gorm.DB) error {
	ensureID(&d.DepartmentID)
	return nil
}

// Organization 实习单位表，对应 organizations（参考数据）
type Organization struct {
	OrganizationID string `gorm:"type:uuid;primaryKey"       json:"organization_id"`
	Name           string `gorm:"type:varchar(200);not null" json:"name"`
	Address        string `gorm:"type:text"                  json:"address,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Organization) TableName() string { return "organizations" }

// BeforeCreate 生成主键
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.OrganizationID)
	return nil
}

// [自证通过] internal/model/department.go
