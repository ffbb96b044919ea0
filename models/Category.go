package models

import "gorm.io/gorm"

type Category struct {
	gorm.Model
	Name        string    `json:"name" gorm:"size:128;uniqueIndex"`
	Description string    `json:"description" gorm:"size:512"`
	Products    []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID;references:ID"`
}
