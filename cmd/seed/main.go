package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"boxoffice/internal/events"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
)

type Seeder struct {
	db *database.DB
}

// sectionLayout describes one pricing section of a venue: which rows it
// spans, how wide each row is, and its price relative to the event base.
type sectionLayout struct {
	section     string
	rows        []string
	seatsPerRow int
	multiplier  float64
}

// Two house layouts shared by the seeded events. Seat counts are kept small
// so the full seat map fits on one screen during manual testing.
var (
	mainStageLayout = []sectionLayout{
		{section: "ORCH", rows: []string{"A", "B", "C"}, seatsPerRow: 12, multiplier: 1.8},
		{section: "MEZZ", rows: []string{"D", "E"}, seatsPerRow: 10, multiplier: 1.3},
		{section: "BALC", rows: []string{"F", "G"}, seatsPerRow: 10, multiplier: 1.0},
	}

	studioLayout = []sectionLayout{
		{section: "FLOOR", rows: []string{"A", "B"}, seatsPerRow: 8, multiplier: 1.4},
		{section: "RISER", rows: []string{"C"}, seatsPerRow: 10, multiplier: 1.0},
	}
)

func main() {
	fmt.Println("🌱 Starting Boxoffice Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints
	// Delete in reverse dependency order
	tables := []string{
		"bookings",
		"seat_holds",
		"seats",
		"events",
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

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedEvents(); err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	// Clear Redis so stale seat status overlay entries, locks, and cached
	// responses do not shadow the fresh rows.
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedEvents creates sample events, each with a full seat grid
func (s *Seeder) SeedEvents() error {
	fmt.Println("  🎪 Seeding events...")

	eventsData := []struct {
		name        string
		description string
		venue       string
		basePrice   float64
		daysFromNow int
		status      events.EventStatus
		layout      []sectionLayout
	}{
		{
			name:        "Symphony Under Glass",
			description: "A full orchestral program performed beneath the hall's glass atrium.",
			venue:       "Aurora Concert Hall",
			basePrice:   900.0,
			daysFromNow: 30,
			status:      events.EventStatusPublished,
			layout:      mainStageLayout,
		},
		{
			name:        "Indie Rock Night",
			description: "Three local bands, one small room, no bad seats.",
			venue:       "The Velvet Room",
			basePrice:   450.0,
			daysFromNow: 12,
			status:      events.EventStatusPublished,
			layout:      studioLayout,
		},
		{
			name:        "Jazz Quartet Live",
			description: "An intimate evening with the city's longest-running jazz quartet.",
			venue:       "Aurora Concert Hall",
			basePrice:   700.0,
			daysFromNow: 45,
			status:      events.EventStatusPublished,
			layout:      mainStageLayout,
		},
		{
			name:        "Stand-up Showcase",
			description: "Eight comics, five minutes each, and a headliner to close the night.",
			venue:       "The Velvet Room",
			basePrice:   350.0,
			daysFromNow: 8,
			status:      events.EventStatusPublished,
			layout:      studioLayout,
		},
		{
			name:        "A Winter's Tale",
			description: "The resident company's staging of Shakespeare's late romance.",
			venue:       "Aurora Concert Hall",
			basePrice:   1200.0,
			daysFromNow: 60,
			status:      events.EventStatusDraft,
			layout:      mainStageLayout,
		},
		{
			name:        "Spring Gala",
			description: "The season-opening gala concert and fundraiser.",
			venue:       "Aurora Concert Hall",
			basePrice:   1500.0,
			daysFromNow: -20,
			status:      events.EventStatusCompleted,
			layout:      mainStageLayout,
		},
	}

	for _, eventData := range eventsData {
		event := events.Event{
			Name:        eventData.name,
			Description: eventData.description,
			Venue:       eventData.venue,
			StartsAt:    time.Now().AddDate(0, 0, eventData.daysFromNow),
			Status:      eventData.status,
		}

		if err := s.db.PostgreSQL.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create event %s: %w", event.Name, err)
		}

		seatCount, err := s.createSeatsForEvent(event.ID, eventData.basePrice, eventData.layout)
		if err != nil {
			return fmt.Errorf("failed to create seats for event %s: %w", event.Name, err)
		}

		fmt.Printf("    ✅ Created event: %s (%s, %d seats)\n", event.Name, event.Status, seatCount)
	}

	return nil
}

// createSeatsForEvent builds the seat grid for an event from its layout
func (s *Seeder) createSeatsForEvent(eventID int64, basePrice float64, layout []sectionLayout) (int, error) {
	var rows []seats.Seat

	for _, section := range layout {
		price := basePrice * section.multiplier
		for _, rowLetter := range section.rows {
			for num := 1; num <= section.seatsPerRow; num++ {
				rows = append(rows, seats.Seat{
					EventID:    eventID,
					Section:    section.section,
					RowLetter:  rowLetter,
					SeatNumber: num,
					Price:      price,
					Status:     seats.StatusAvailable,
				})
			}
		}
	}

	if err := s.db.PostgreSQL.CreateInBatches(rows, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to insert seat rows: %w", err)
	}

	return len(rows), nil
}
