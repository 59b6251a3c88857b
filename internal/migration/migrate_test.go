package migration

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrationtest?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}

	if err := RunMigrations(sqlDB); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(sqlDB); err != nil {
		t.Fatalf("second run: %v", err)
	}

	for _, table := range []string{"patent_cache", "request_log", "rate_limit_windows", "api_keys"} {
		var count int64
		if err := conn.Table(table).Count(&count).Error; err != nil {
			t.Fatalf("table %s not usable after migration: %v", table, err)
		}
	}

	var applied int64
	if err := conn.Table("schema_migrations").Count(&applied).Error; err != nil {
		t.Fatalf("schema_migrations: %v", err)
	}
	if applied != 4 {
		t.Fatalf("applied migrations = %d, want 4", applied)
	}
}
