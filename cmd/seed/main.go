package main

import (
	"context"
	"fmt"
	"log"

	"gatepass/internal/shared/config"
	"gatepass/internal/shared/database"
	"gatepass/internal/shows"
)

type Seeder struct {
	db  *database.DB
	svc shows.Service
}

func main() {
	fmt.Println("🌱 Starting Gatepass Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := shows.NewRepository(db.PostgreSQL, db.Redis)
	seeder := &Seeder{db: db, svc: shows.NewService(repo)}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedShows(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"tickets",
		"bookings",
		"abandoned_carts",
		"holds",
		"show_units",
		"shows",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	// Clear the hold mirror and availability snapshots so Redis matches
	// the emptied tables
	if err := s.db.Redis.FlushDB(context.Background()).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis: %v", err)
	}

	return nil
}

// SeedShows creates a few published shows in both inventory modes
func (s *Seeder) SeedShows() error {
	ctx := context.Background()

	fmt.Println("  🎭 Seeding seated shows...")

	seatedShows := []struct {
		request  shows.CreateShowRequest
		sections []shows.LayoutSection
	}{
		{
			request: shows.CreateShowRequest{
				EventName: "Hamilton",
				ShowDate:  "2026-09-15",
				ShowTime:  "19:30",
				Language:  "English",
				Mode:      "SEATED",
				BasePrice: 800.0,
			},
			sections: []shows.LayoutSection{
				{Category: "PREMIUM", Rows: []string{"A", "B"}, SeatsPerRow: 13, PriceMultiplier: 1.8},
				{Category: "STANDARD", Rows: []string{"C", "D", "E"}, SeatsPerRow: 13},
			},
		},
		{
			request: shows.CreateShowRequest{
				EventName: "Classical Music Evening",
				ShowDate:  "2026-10-02",
				ShowTime:  "20:00",
				Language:  "Hindi",
				Mode:      "SEATED",
				BasePrice: 500.0,
			},
			sections: []shows.LayoutSection{
				{Category: "VIP", Rows: []string{"A"}, SeatsPerRow: 8, PriceMultiplier: 2.0},
				{Category: "GENERAL", Rows: []string{"B", "C"}, SeatsPerRow: 10},
			},
		},
	}

	for _, data := range seatedShows {
		show, err := s.svc.CreateShow(ctx, data.request)
		if err != nil {
			return fmt.Errorf("failed to create show %s: %w", data.request.EventName, err)
		}
		if _, err := s.svc.PublishLayout(ctx, show.ID.String(), shows.PublishLayoutRequest{
			Sections: data.sections,
		}); err != nil {
			return fmt.Errorf("failed to publish layout for %s: %w", data.request.EventName, err)
		}
		fmt.Printf("    ✅ Created show: %s (%s %s)\n", show.EventName, data.request.ShowDate, show.ShowTime)
	}

	fmt.Println("  🎪 Seeding capacity shows...")

	capacityShows := []struct {
		request  shows.CreateShowRequest
		capacity int
	}{
		{
			request: shows.CreateShowRequest{
				EventName: "Standup Night",
				ShowDate:  "2026-09-20",
				ShowTime:  "21:00",
				Language:  "English",
				Mode:      "CAPACITY",
				BasePrice: 300.0,
			},
			capacity: 250,
		},
		{
			request: shows.CreateShowRequest{
				EventName: "Food & Wine Festival",
				ShowDate:  "2026-11-08",
				ShowTime:  "17:00",
				Language:  "",
				Mode:      "CAPACITY",
				BasePrice: 1200.0,
			},
			capacity: 500,
		},
	}

	for _, data := range capacityShows {
		show, err := s.svc.CreateShow(ctx, data.request)
		if err != nil {
			return fmt.Errorf("failed to create show %s: %w", data.request.EventName, err)
		}
		if _, err := s.svc.PublishLayout(ctx, show.ID.String(), shows.PublishLayoutRequest{
			Capacity: data.capacity,
		}); err != nil {
			return fmt.Errorf("failed to publish capacity for %s: %w", data.request.EventName, err)
		}
		fmt.Printf("    ✅ Created show: %s (capacity %d)\n", show.EventName, data.capacity)
	}

	return nil
}
