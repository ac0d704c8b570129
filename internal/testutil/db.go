package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// NewTestStore creates a store over a temporary database.
func NewTestStore(t *testing.T) *db.Store {
	t.Helper()
	return db.NewStore(NewTestDB(t))
}

// SeedFacility inserts an approved facility and returns its ID.
func SeedFacility(t *testing.T, store booking.Store) int64 {
	t.Helper()

	facility := &booking.Facility{
		Name:     "Riverside Sports Center",
		OwnerID:  1,
		Status:   booking.FacilityApproved,
		Timezone: "UTC",
	}
	if err := store.CreateFacility(context.Background(), facility); err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	return facility.ID
}

// SeedCourt inserts an active court with the given operating hours and
// returns it.
func SeedCourt(t *testing.T, store booking.Store, facilityID int64, opening, closing string) *booking.Court {
	t.Helper()

	court := &booking.Court{
		FacilityID:        facilityID,
		Name:              "Court 1",
		OpeningTime:       opening,
		ClosingTime:       closing,
		PricePerHourCents: 2500,
		Active:            true,
	}
	if err := store.CreateCourt(context.Background(), court); err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}

// SeedUser inserts a member with an email and returns their ID.
func SeedUser(t *testing.T, store booking.Store, email string) int64 {
	t.Helper()

	user := &booking.User{
		Name:  "Test Member",
		Email: sql.NullString{String: email, Valid: email != ""},
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}
