package models

import "gorm.io/gorm"

type Address struct {
	gorm.Model
	UserID       uint   `json:"userID" gorm:"not null;index"`
	FullName     string `json:"fullName" gorm:"size:128"`
	PhoneNumber  string `json:"phoneNumber" gorm:"size:32"`
	AddressLine1 string `json:"addressLine1" gorm:"size:256"`
	AddressLine2 string `json:"addressLine2" gorm:"size:256"`
	Subdistrict  string `json:"subdistrict" gorm:"size:128"`
	District     string `json:"district" gorm:"size:128"`
	Province     string `json:"province" gorm:"size:128"`
	ZipCode      string `json:"zipCode" gorm:"size:16"`
	IsDefault    bool   `json:"isDefault"`
}
