// Command main runs the database seeder for the project showcase.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"showcase/internal/config"
	"showcase/internal/database"
	"showcase/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numProjects := flag.Int("projects", 60, "Number of projects to create")
	maxReviews := flag.Int("reviews", 8, "Maximum reviews per live project")
	maxDays := flag.Int("days", 120, "Spread creation times over this many past days")
	shouldClean := flag.Bool("clean", true, "Clean projects, reviews and users before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	summary, err := seed.Seed(ctx, db, seed.Options{
		NumUsers:             *numUsers,
		NumProjects:          *numProjects,
		MaxReviewsPerProject: *maxReviews,
		MaxDays:              *maxDays,
		ShouldClean:          *shouldClean,
		DryRun:               *dryRun,
		RandomSeed:           *randomSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d reviews, projects by status: %v",
		summary.Users, summary.Reviews, summary.Projects)
	log.Printf("📧 Admin account: %s (mint a token with: admin issue-token <id>)", seed.AdminEmail)
}
