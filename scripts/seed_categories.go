package main

import (
	"fmt"
	"log"

	"marketplace-server/models"
	"marketplace-server/storage"

	"gorm.io/gorm/clause"
)

var defaultCategories = []models.Category{
	{Name: "Electronics", Description: "Phones, computers, cameras and gadgets"},
	{Name: "Fashion", Description: "Clothing, shoes and accessories"},
	{Name: "Home & Garden", Description: "Furniture, appliances and decor"},
	{Name: "Books", Description: "Books, comics and magazines"},
	{Name: "Sports", Description: "Sports gear and outdoor equipment"},
	{Name: "Toys & Games", Description: "Toys, board games and consoles"},
	{Name: "Vehicles", Description: "Cars, motorcycles and parts"},
	{Name: "Other", Description: "Everything else"},
}

func main() {
	storage.InitializeDB()

	for _, category := range defaultCategories {
		err := storage.DB.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&category).Error
		if err != nil {
			log.Fatalf("Error seeding category %q: %v", category.Name, err)
		}
	}

	fmt.Println("Category seeding completed successfully!")
}
