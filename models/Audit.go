package models

import "time"

// AuditLog is the moderation trail: one row per admin action against a
// marketplace resource (user, product, category), with JSON snapshots of the
// resource before and after. Rows are append-only and never soft-deleted,
// so the struct carries its own ID/CreatedAt instead of gorm.Model.
type AuditLog struct {
	ID          uint `json:"id" gorm:"primaryKey"`
	AdminUserID uint `json:"adminUserID" gorm:"index;not null"`
	AdminUser   User `json:"adminUser" gorm:"foreignKey:AdminUserID;references:ID"`

	// Action is dot-scoped: product.approve, product.reject,
	// user.role_update, user.delete, category.create, ...
	Action       string `json:"action" gorm:"size:64;index"`
	ResourceType string `json:"resourceType" gorm:"size:32;index"`
	ResourceID   uint   `json:"resourceID" gorm:"index"`

	BeforeJSON string `json:"beforeJSON" gorm:"type:text"`
	AfterJSON  string `json:"afterJSON" gorm:"type:text"`

	IPAddress string    `json:"ipAddress" gorm:"size:64"`
	CreatedAt time.Time `json:"createdAt"`
}
