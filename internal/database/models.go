package database

import (
	"time"

	"gorm.io/gorm"
)

// Roles stored on User. The shop has exactly one administrator, seeded by
// cmd/admin; everyone registering through the API gets RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// PrintJob lifecycle states. The transition is one-way: Pending -> Completed.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// User is an account keyed on the normalized 10-digit mobile number.
type User struct {
	gorm.Model
	Name         string     `gorm:"size:128"`
	MobileNumber string     `gorm:"uniqueIndex;size:16"`
	PasswordHash string     `gorm:"size:255"`
	Role         string     `gorm:"size:16;default:user"`
	PrintJobs    []PrintJob `gorm:"constraint:OnDelete:CASCADE"`
}

// PrintJob is one submission: page total, free-text instructions and status.
// CreatedAt doubles as the submission timestamp used to order the admin queue.
type PrintJob struct {
	gorm.Model
	UserID            uint `gorm:"index"`
	User              User `gorm:"constraint:OnDelete:CASCADE"`
	TotalPages        int
	PrintInstructions string    `gorm:"type:text"`
	Status            string    `gorm:"size:32;index"`
	Files             []JobFile `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

// JobFile associates one stored object with its parent job. Rows are written
// once, right after the object lands in the bucket, and never mutated.
type JobFile struct {
	gorm.Model
	JobID            uint     `gorm:"index"`
	Job              PrintJob `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	StorageKey       string   `gorm:"size:512"`
	OriginalFilename string   `gorm:"size:255"`
}

// AppSetting is a flat key/value row with upsert semantics. Intentionally
// schema-free so small admin-editable values don't each grow a table.
type AppSetting struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
