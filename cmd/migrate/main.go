package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"jucket/appconfig"
	"jucket/database"
	"jucket/logging"
)

// CLI flags
var (
	dbPath     = flag.String("db", "", "Path to SQLite database file (default from config)")
	importFile = flag.String("import", "", "Import dislikes from a JSON array or PouchDB allDocs dump ('-' for stdin)")
	exportFile = flag.String("export", "", "Export dislikes as JSON ('-' for stdout)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	dryRun     = flag.Bool("dry-run", false, "Perform a dry run without making changes")
	validate   = flag.Bool("validate", false, "Validate existing database")
	downTo     = flag.Int("down", -1, "Roll the schema back to this version")
	vacuum     = flag.Bool("vacuum", false, "Compact the database file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Dislike Database Migration Tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import the browser player's dislike dump\n")
		fmt.Fprintf(os.Stderr, "  %s -import dislikes.json\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Check what an import would do\n")
		fmt.Fprintf(os.Stderr, "  %s -import dislikes.json -dry-run\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Back up to a file\n")
		fmt.Fprintf(os.Stderr, "  %s -export backup.json\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Validate existing database\n")
		fmt.Fprintf(os.Stderr, "  %s -validate\n", os.Args[0])
	}
	flag.Parse()

	// Configure logging
	if !*verbose {
		log.SetFlags(0)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.InitLogger(level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if *dbPath == "" {
		cfg, err := appconfig.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		*dbPath = cfg.DBPath
	}

	dm, err := database.NewDatabaseManager(*dbPath, database.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer dm.Close()

	ctx := context.Background()

	switch {
	case *downTo >= 0:
		err = rollback(dm, *downTo, logger)
	case *importFile != "":
		err = importDump(ctx, dm, *importFile)
	case *exportFile != "":
		err = exportDump(ctx, dm, *exportFile)
	case *vacuum:
		err = compact(dm)
	case *validate:
		err = validateDatabase(ctx, dm)
	default:
		err = printStats(dm)
	}
	if err != nil {
		dm.Close()
		log.Fatalf("%v", err)
	}
}

// progressReporter creates a progress callback function
func progressReporter(verbose bool) database.ProgressCallback {
	lastUpdate := time.Now()

	return func(progress database.MigrationProgress) {
		now := time.Now()
		// Update every second or when complete
		if now.Sub(lastUpdate) < time.Second && progress.Processed < progress.Total {
			return
		}
		lastUpdate = now

		percent := float64(progress.Processed) / float64(progress.Total) * 100
		fmt.Printf("\rRecords: %d/%d (%.1f%%) | Imported: %d | Skipped: %d",
			progress.Processed, progress.Total, percent, progress.Imported, progress.Skipped)

		if progress.Processed < progress.Total {
			return
		}
		fmt.Println()
		fmt.Printf("\nImport finished in %s\n", progress.ElapsedTime.Round(time.Millisecond))

		if len(progress.Errors) > 0 {
			fmt.Printf("\nSkipped %d invalid records:\n", len(progress.Errors))
			for i, err := range progress.Errors {
				if i >= 10 && !verbose {
					fmt.Printf("  ... and %d more\n", len(progress.Errors)-10)
					break
				}
				fmt.Printf("  - %v\n", err)
			}
		}
	}
}

// importDump loads a dump file into the database
func importDump(ctx context.Context, dm *database.DatabaseManager, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open dump: %w", err)
		}
		defer f.Close()
		r = f
		log.Printf("Importing dislikes from: %s", path)
	}

	progress, err := dm.ImportJSON(ctx, r, database.ImportOptions{DryRun: *dryRun}, progressReporter(*verbose))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if *dryRun {
		fmt.Printf("\nDry run: %d records would be imported, %d skipped. Nothing was written.\n",
			progress.Imported, progress.Skipped)
		return nil
	}

	fmt.Println("\nValidating import...")
	if valid, issues := dm.Validate(ctx); !valid {
		return fmt.Errorf("import validation failed: %s", strings.Join(issues, "; "))
	}

	if err := printStats(dm); err != nil {
		return err
	}
	fmt.Println("\nImport completed successfully!")
	return nil
}

// exportDump writes every dislike as JSON
func exportDump(ctx context.Context, dm *database.DatabaseManager, path string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		if *dryRun {
			fmt.Printf("Would export to: %s\n", path)
			return nil
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := dm.ExportJSON(ctx, w)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if path != "-" {
		fmt.Printf("Exported %d dislikes to %s\n", n, path)
	}
	return nil
}

// rollback moves the schema back to version
func rollback(dm *database.DatabaseManager, version int, logger *zap.Logger) error {
	current, err := database.GetSchemaVersion(dm.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if *dryRun {
		fmt.Printf("Would roll back schema from version %d to %d\n", current, version)
		return nil
	}
	if err := database.MigrateDown(dm.DB, version, logger); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	fmt.Printf("Schema rolled back from version %d to %d\n", current, version)
	return nil
}

func compact(dm *database.DatabaseManager) error {
	before, _ := dm.GetStats()
	if *dryRun {
		fmt.Println("Would run VACUUM")
		return nil
	}
	if err := dm.Vacuum(); err != nil {
		return err
	}
	after, err := dm.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get database stats: %w", err)
	}
	if before != nil {
		fmt.Printf("Size: %s -> %s\n",
			humanize.Bytes(uint64(before.DatabaseSize)), humanize.Bytes(uint64(after.DatabaseSize)))
	}
	return nil
}

// validateDatabase validates an existing database
func validateDatabase(ctx context.Context, dm *database.DatabaseManager) error {
	if err := printStats(dm); err != nil {
		return err
	}

	fmt.Println("\nRunning validation checks...")
	valid, issues := dm.Validate(ctx)
	for _, issue := range issues {
		fmt.Printf("  ⚠️  %s\n", issue)
	}
	if !valid {
		return fmt.Errorf("validation found %d issues", len(issues))
	}
	fmt.Println("  ✓ Schema, integrity and records are valid")

	// Sample the newest records
	count, err := dm.Count(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to count dislikes: %w", err)
	}
	if count > 0 {
		last := (count + 4) / 5
		entities, err := dm.Find(ctx, 5, last, "")
		if err != nil {
			return fmt.Errorf("failed to sample dislikes: %w", err)
		}
		fmt.Println("\nSample dislikes:")
		for _, e := range entities {
			fmt.Printf("  - %s (%s, %s)\n", e.Name, e.URI, humanize.Time(e.CreatedAt))
		}
	}

	fmt.Println("\nValidation completed!")
	return nil
}

func printStats(dm *database.DatabaseManager) error {
	stats, err := dm.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get database stats: %w", err)
	}

	fmt.Println("Database Statistics:")
	fmt.Printf("  Dislikes:  %d\n", stats.DislikeCount)
	for kind, n := range stats.KindCounts {
		fmt.Printf("    %-7s %d\n", kind, n)
	}
	fmt.Printf("  Schema:    v%d\n", stats.SchemaVersion)
	fmt.Printf("  Size:      %s\n", humanize.Bytes(uint64(stats.DatabaseSize)))
	if stats.LastDislikeAt != nil {
		fmt.Printf("  Last:      %s\n", humanize.Time(*stats.LastDislikeAt))
	}
	return nil
}
