package models

import (
	"fmt"
	"log"
	"os"
	"sort"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Schema tooling.

Migrate creates or updates every table the API needs and runs at startup.

Setting GENERATE_MODELS=true migrates with verbose logging, prints the column
mismatch report and writes typed query helpers to ./generated, then exits.
Setting GENERATE_COLUMN_REPORT=true only prints the report.

Example report:
=== COLUMN MISMATCH REPORT ===
--- Table: projects ---
Found 1 columns not accounted for in model:
  - legacy_slug

=== SUMMARY ===
Total mismatched columns across all tables: 1
*/

// All returns one zero value of every persisted model, parents first.
func All() []interface{} {
	return []interface{}{
		&Admin{},
		&Technology{},
		&Contributor{},
		&Project{},
		&ProjectTechnology{},
		&ProjectContributor{},
		&ProjectImage{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func GenerateModels(db *gorm.DB) {
	if err := db.Exec("SELECT 1").Error; err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	db = db.Session(&gorm.Session{
		Logger:                 newLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(All()...)

	fmt.Println("Migrating models...")
	if err := Migrate(db); err != nil {
		fmt.Printf("Error during models migration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database migration completed successfully!")

	PrintColumnMismatchReport(db)

	g.Execute()
	fmt.Println("Model generation complete!")
}

// ColumnMismatches lists, per table, the database columns no model field maps
// to. Tables that do not exist yet are skipped.
func ColumnMismatches(db *gorm.DB) (map[string][]string, error) {
	report := make(map[string][]string)

	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(table) {
			continue
		}

		columnTypes, err := db.Migrator().ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("error querying columns for table %s: %w", table, err)
		}

		known := make(map[string]bool, len(stmt.Schema.DBNames))
		for _, name := range stmt.Schema.DBNames {
			known[name] = true
		}

		var mismatches []string
		for _, col := range columnTypes {
			if !known[col.Name()] {
				mismatches = append(mismatches, col.Name())
			}
		}
		sort.Strings(mismatches)
		report[table] = mismatches
	}

	return report, nil
}

func PrintColumnMismatchReport(db *gorm.DB) {
	fmt.Println("=== COLUMN MISMATCH REPORT ===")

	report, err := ColumnMismatches(db)
	if err != nil {
		fmt.Printf("Error generating report: %v\n", err)
		return
	}

	tables := make([]string, 0, len(report))
	for table := range report {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	total := 0
	for _, table := range tables {
		fmt.Printf("\n--- Table: %s ---\n", table)
		mismatches := report[table]
		if len(mismatches) == 0 {
			fmt.Println("All columns are accounted for in the model.")
			continue
		}
		fmt.Printf("Found %d columns not accounted for in model:\n", len(mismatches))
		for _, col := range mismatches {
			fmt.Printf("  - %s\n", col)
		}
		total += len(mismatches)
	}

	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Total mismatched columns across all tables: %d\n", total)
}
