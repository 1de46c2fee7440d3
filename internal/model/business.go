package model

import "github.com/google/uuid"

type Business struct {
	BaseModel
	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	Currency string    `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	OwnerID  uuid.UUID `gorm:"type:uuid;not null" json:"owner_id"`
}

type MemberRole string

const (
	RoleOwner   MemberRole = "OWNER"
	RoleManager MemberRole = "MANAGER"
	RoleCashier MemberRole = "CASHIER"
)

// BusinessMember grants a user access to one business.
type BusinessMember struct {
	BaseModel
	BusinessID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_member_business_user" json:"business_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_member_business_user" json:"user_id"`
	Role       MemberRole `gorm:"type:varchar(20);not null" json:"role"`
}
