package model

import "time"

// Office is a physical or organizational site letters are issued from.
type Office struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Address   string    `json:"address" gorm:"size:500"`
	Phone     string    `json:"phone" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Department groups staff, optionally under an office.
type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	OfficeID  *uint     `json:"office_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Office *Office `json:"office,omitempty" gorm:"foreignKey:OfficeID"`
}

// Staff is a directory entry (signatory, recipient) and is not a login account.
type Staff struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null;index"`
	Email        string    `json:"email" gorm:"size:255"`
	Position     string    `json:"position" gorm:"size:255"`
	Phone        string    `json:"phone" gorm:"size:50"`
	OfficeID     *uint     `json:"office_id" gorm:"index"`
	DepartmentID *uint     `json:"department_id" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Office     *Office     `json:"office,omitempty" gorm:"foreignKey:OfficeID"`
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

// TableName keeps the singular noun from being pluralized to "staffs".
func (Staff) TableName() string { return "staff" }
