package db

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand against the embedded
// migrations.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(w)
		return nil
	}

	// Migrations manage the schema, so skip NewDB's automatic upgrade.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	migrations := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "All migrations applied")

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "Rolled back one migration")

	case "status":

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: treevolume migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[1])
		}
		if err := database.MigrateForce(migrations, v); err != nil {
			return err
		}

	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(w, "Current version: %d\nDirty: %v\n", version, dirty)
	if dirty {
		fmt.Fprintln(w, "WARNING: a migration failed mid-execution. Inspect the database, then run: treevolume migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: treevolume migrate <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  up           Apply all pending migrations")
	fmt.Fprintln(w, "  down         Roll back one migration")
	fmt.Fprintln(w, "  status       Show current migration version")
	fmt.Fprintln(w, "  force <N>    Force migration version to N (recovery only)")
	fmt.Fprintln(w, "  help         Show this help message")
}
