package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name         string    `json:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	Password     string    `json:"-"`
	Bio          string    `json:"bio"`
	PhoneNumber  string    `json:"phoneNumber"`
	ProfileImage string    `json:"profileImage"`
	Role         string    `json:"role" gorm:"type:varchar(20);default:USER;index"` // USER, ADMIN
	Products     []Product `json:"products,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Addresses    []Address `json:"addresses,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// PublicUser is the profile shape embedded in conversations, messages and
// product listings. Never expose the full User row to other users.
type PublicUser struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage"`
	Role         string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		Role:         u.Role,
	}
}
