package model

import "time"

// User represents an authenticated user in the system.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"type:varchar(255) COLLATE utf8mb4_bin;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'staff';index"`
	Position     string    `json:"position" gorm:"size:255"`
	Department   string    `json:"department" gorm:"size:255"`
	Office       string    `json:"office" gorm:"size:255"`
	Phone        string    `json:"phone" gorm:"size:50"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
