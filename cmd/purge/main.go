package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"media-converter/internal/artifacts"
	"media-converter/internal/database"
	"media-converter/internal/mapping"
	"media-converter/internal/naming"
	"media-converter/internal/startup"
)

// Default timeout for database operations
const defaultTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	yes := flags.Bool("yes", false, "skip the confirmation prompt")
	flags.Parse(os.Args[2:])

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	if _, err := startup.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	config := startup.ReadConfig()

	storage, err := artifacts.NewStorage(config.UploadDir, config.WorkDir, config.OutputDir, naming.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open storage area: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", config.DataDir)
		os.Exit(1)
	}

	if err := os.MkdirAll(config.DatabaseDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create database directory: %v\n", err)
		os.Exit(1)
	}
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", config.DatabaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "purge":
		if !*yes && !confirm(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd()))) {
			fmt.Fprintln(os.Stderr, "Aborted.")
			os.Exit(1)
		}
		if !purge(ctx, os.Stdout, storage, db) {
			os.Exit(1)
		}
	case "status":
		showStatus(ctx, os.Stdout, storage, db)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Media Converter Storage Maintenance")
	fmt.Println("")
	fmt.Println("Usage: purge <command> [-yes]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  purge   - Delete every stored upload, intermediate and output")
	fmt.Println("  status  - Show storage usage and the last purge time")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  DATA_DIR     - Root of the storage area (default: ./data)")
	fmt.Println("  DATABASE_DIR - Path to database directory (default: $DATA_DIR/database)")
}

// confirm asks before destroying data. Input that is not a terminal is
// never treated as consent.
func confirm(in io.Reader, out io.Writer, interactive bool) bool {
	if !interactive {
		fmt.Fprintln(out, "Refusing to purge without a terminal; pass -yes to confirm.")
		return false
	}

	fmt.Fprint(out, "This deletes all converted files and download links. Type 'yes' to continue: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func purge(ctx context.Context, out io.Writer, storage *artifacts.Storage, db *database.Database) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	freed, err := storage.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: some files could not be removed: %v\n", err)
	}

	registry := mapping.NewRegistry(mapping.NewSQLStore(db))
	if err := registry.Teardown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to clear output mappings: %v\n", err)
		return false
	}

	if err := db.RecordPurge(ctx, database.PurgeRecord{Source: "cli", FreedBytes: freed}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to record purge: %v\n", err)
		return false
	}

	fmt.Fprintf(out, "Purged storage area, freed %d bytes.\n", freed)
	fmt.Fprintln(out, "All download links have been invalidated.")
	return err == nil
}

func showStatus(ctx context.Context, out io.Writer, storage *artifacts.Storage, db *database.Database) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	usage := storage.Usage()
	for _, label := range []string{"uploads", "work", "outputs"} {
		fmt.Fprintf(out, "%-8s %d bytes\n", label+":", usage[label])
	}

	if n, err := db.CountMappings(ctx); err == nil {
		fmt.Fprintf(out, "Mappings: %d\n", n)
	} else {
		fmt.Fprintf(os.Stderr, "Warning: failed to count mappings: %v\n", err)
	}

	last, ok, err := db.LastPurge(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Warning: failed to read last purge: %v\n", err)
	case !ok:
		fmt.Fprintln(out, "Last purge: never")
	default:
		fmt.Fprintf(out, "Last purge: %s (%s, freed %d bytes)\n",
			last.At.Format(time.RFC3339), last.Source, last.FreedBytes)
	}
}
