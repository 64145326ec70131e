package main

import (
	"log"
	"os"

	"design-sandbox-be/internal/model"
	"design-sandbox-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: pgvector must exist before the embeddings table
	log.Println("Step 1: Installing pgvector extension...")
	if err := database.EnsureVectorExtension(db); err != nil {
		log.Fatal("Error: Failed to install pgvector extension:", err)
	}

	// 4. AutoMigrate schema
	log.Println("Step 2: Migrating tables...")
	if err := db.AutoMigrate(
		&model.Item{},
		&model.ItemEmbedding{},
	); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("✅ Migration complete")
}
