package repository

import (
	"path/filepath"
	"testing"
	"time"

	"EncounterSync/internal/model"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "encounters.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var base = time.Date(2020, 3, 14, 10, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func participation(instanceID, accountID string, team, from, to int) model.Participation {
	return model.Participation{
		InstanceID: instanceID,
		AccountID:  accountID,
		Team:       intPtr(team),
		StartTime:  at(from),
		EndTime:    at(to),
	}
}
