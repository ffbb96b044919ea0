package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product statuses. New listings start pending and only become visible in
// the public catalog once an admin approves them.
const (
	ProductStatusPending   = "PENDING_APPROVAL"
	ProductStatusAvailable = "available"
	ProductStatusCancelled = "cancelled"
)

type Product struct {
	gorm.Model
	OwnerID     uint           `json:"ownerID" gorm:"not null;index"`
	Owner       User           `json:"owner" gorm:"foreignKey:OwnerID;references:ID"`
	Title       string         `json:"title" gorm:"size:256"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price"`
	Status      string         `json:"status" gorm:"size:32;default:PENDING_APPROVAL;index"`
	Images      datatypes.JSON `json:"images"` // JSON array of URLs, cover first
	Video       string         `json:"video" gorm:"size:512"`
	CategoryID  *uint          `json:"categoryID" gorm:"index"`
	Category    *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID;references:ID"`
}

// ImageURLs decodes the Images JSON column; nil when unset or malformed.
func (p *Product) ImageURLs() []string {
	if p.Images == nil {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(p.Images, &urls); err != nil {
		return nil
	}
	return urls
}

// Preview is the snapshot embedded in chat messages that reference a listing.
type ProductPreview struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Status      string   `json:"status"`
	Images      []string `json:"images"`
	OwnerID     uint     `json:"ownerID"`
	OwnerName   string   `json:"ownerName,omitempty"`
	Category    string   `json:"category,omitempty"`
}

func (p *Product) Preview() ProductPreview {
	pv := ProductPreview{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Status:      p.Status,
		Images:      p.ImageURLs(),
		OwnerID:     p.OwnerID,
		OwnerName:   p.Owner.Name,
	}
	if p.Category != nil {
		pv.Category = p.Category.Name
	}
	return pv
}
