package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/util"
)

const TABLE_NAME = "loadsetup_telemetry"

// CreateTelemetryTableIfNotExists() opens (and creates if necessary)
// the telemetry record database at path.
func CreateTelemetryTableIfNotExists(path string) (*sqlx.DB, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		time 		TIMESTAMP NOT NULL,
		address 	TEXT NOT NULL,
		channel 	INTEGER NOT NULL,
		current 	TEXT,
		voltage 	TEXT,
		resistance 	TEXT
	);
	`, TABLE_NAME)
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	db.MustExec(schema)
	return db, nil
}

// InsertTelemetryRecords() appends the records of one poll cycle to
// the database. Records are append-only; nothing is ever updated.
func InsertTelemetryRecords(path string, records ...loadsetup.TelemetryRecord) error {
	if records == nil {
		return fmt.Errorf("records == nil")
	}

	db, err := CreateTelemetryTableIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.MustBegin()
	sql := fmt.Sprintf(`INSERT INTO %s (time, address, channel, current, voltage, resistance)
	VALUES (:time, :address, :channel, :current, :voltage, :resistance);`, TABLE_NAME)
	for _, rec := range records {
		_, err := tx.NamedExec(sql, &rec)
		if err != nil {
			fmt.Printf("failed to execute transaction: %v\n", err)
		}
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetTelemetryRecords() reads back every stored record in insertion
// (time) order.
func GetTelemetryRecords(path string) ([]loadsetup.TelemetryRecord, error) {
	// check if path exists first to prevent creating the database
	_, exists := util.PathExists(path)
	if !exists {
		return nil, fmt.Errorf("no file found")
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	results := []loadsetup.TelemetryRecord{}
	err = db.Select(&results, fmt.Sprintf("SELECT * FROM %s ORDER BY time ASC;", TABLE_NAME))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve records: %v", err)
	}
	return results, nil
}
