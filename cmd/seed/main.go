// Command seed wipes the database and repopulates it with a fixed admin
// account and sample users and listings. Development aid only.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/auth"
	"github.com/Maksud444/market-cairo-server/internal/config"
	"github.com/Maksud444/market-cairo-server/internal/db"
	"github.com/Maksud444/market-cairo-server/internal/models"
)

var sampleListings = []struct {
	Title       string
	Description string
	Price       int64
	Category    models.Category
	Condition   models.Condition
	Area        models.Area
}{
	{"iPhone 13, 128GB", "Lightly used, always in a case. Battery health 91%.", 450, models.CategoryElectronics, models.ConditionGood, models.AreaCentral},
	{"IKEA desk, white", "120x60cm, two years old, some scratches on the top.", 35, models.CategoryFurniture, models.ConditionFair, models.AreaNorth},
	{"Road bike, 54cm frame", "Serviced last month, new chain and tires.", 280, models.CategorySports, models.ConditionGood, models.AreaWest},
	{"Calculus textbook bundle", "Stewart 8th edition plus solutions manual.", 20, models.CategoryBooks, models.ConditionLikeNew, models.AreaEast},
	{"Washing machine, 7kg", "Works fine, moving abroad so must go this week.", 150, models.CategoryAppliances, models.ConditionGood, models.AreaSouth},
}

func main() {
	cfg, err := config.Load("seed")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, name := range []string{"users", "listings", "conversations", "messages"} {
		if _, err := mongoDb.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			log.Fatalf("Failed to clear collection %s: %v", name, err)
		}
	}
	log.Println("Cleared users, listings, conversations and messages.")

	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	now := time.Now().UTC()

	// Admin account. The password is generated fresh on every run and printed
	// exactly once; only the bcrypt hash is stored.
	adminPassword := uuid.NewString()
	adminHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	admin := models.User{
		ID:           primitive.NewObjectID(),
		Email:        "admin@marketcairo.example.com",
		PasswordHash: adminHash,
		Name:         "Admin",
		IsAdmin:      true,
		IsActive:     true,
		Verification: models.Verification{Status: models.VerificationApproved},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := mongoDb.Collection("users").InsertOne(ctx, &admin); err != nil {
		log.Fatalf("Failed to insert admin user: %v", err)
	}
	fmt.Printf("Admin account: %s / %s\n", admin.Email, adminPassword)

	// Sample sellers, all verified so they can hold listings.
	sellers := make([]models.User, 0, 3)
	for i, name := range []string{"Dina", "Omar", "Youssef"} {
		hash, err := auth.HashPassword("password123")
		if err != nil {
			log.Fatalf("Failed to hash sample password: %v", err)
		}
		submitted := now.Add(-time.Duration(i+1) * 24 * time.Hour)
		user := models.User{
			ID:           primitive.NewObjectID(),
			Email:        fmt.Sprintf("%s@example.com", name),
			PasswordHash: hash,
			Name:         name,
			IsActive:     true,
			Verification: models.Verification{
				Status:       models.VerificationApproved,
				DocumentType: models.DocumentPassport,
				Images:       []string{fmt.Sprintf("uploads/documents/%s/passport.jpg", name)},
				SubmittedAt:  &submitted,
				ReviewedAt:   &now,
				ReviewedBy:   &admin.ID,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		sellers = append(sellers, user)
	}
	sellerDocs := make([]interface{}, len(sellers))
	for i := range sellers {
		sellerDocs[i] = &sellers[i]
	}
	if _, err := mongoDb.Collection("users").InsertMany(ctx, sellerDocs); err != nil {
		log.Fatalf("Failed to insert sample users: %v", err)
	}
	log.Printf("Inserted %d sample users (password: password123).", len(sellers))

	listings := make([]interface{}, 0, len(sampleListings))
	for i, sl := range sampleListings {
		seller := sellers[i%len(sellers)]
		listings = append(listings, &models.Listing{
			ID:               primitive.NewObjectID(),
			UserID:           seller.ID,
			Title:            sl.Title,
			Description:      sl.Description,
			Price:            sl.Price,
			Category:         sl.Category,
			Condition:        sl.Condition,
			Images:           []string{},
			Location:         models.Location{Area: sl.Area, City: "Cairo"},
			Status:           models.ListingActive,
			ModerationStatus: models.ModerationApproved,
			CreatedAt:        now.Add(-time.Duration(i) * time.Hour),
			UpdatedAt:        now,
		})
	}
	if _, err := mongoDb.Collection("listings").InsertMany(ctx, listings); err != nil {
		log.Fatalf("Failed to insert sample listings: %v", err)
	}
	log.Printf("Inserted %d sample listings.", len(listings))

	log.Println("Seed complete.")
}
