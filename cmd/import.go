package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pmarques/hemiciclo/internal/config"
	"github.com/pmarques/hemiciclo/internal/service"
	"github.com/pmarques/hemiciclo/internal/store"
)

var importReplace bool
var importIncludeMission bool

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import attendance, activity or agenda files from disk",
	Long: `Import loads exported parliament data into the database.

JSON files are dispatched to the activity or agenda importer based on
their shape. Any other file is treated as a tab-separated attendance
export and runs through the full validation pipeline before being
stored.

Examples:
  # Load one session's attendance export
  ./hemiciclo import reuniao-042.tsv

  # Replace a previously loaded session
  ./hemiciclo import reuniao-042.tsv --replace

  # Load the activity and agenda feeds
  ./hemiciclo import AtividadeDeputadoXVII.json AgendaParlamentar.json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace sessions that were already loaded")
	importCmd.Flags().BoolVar(&importIncludeMission, "include-mission", false, "Require a justification for parliamentary-mission absences")
}

func runImport(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	deputyStore := store.NewDeputyStore(db)
	sessionStore := store.NewSessionStore(db)
	activityStore := store.NewActivityStore(db)
	agendaStore := store.NewAgendaStore(db)

	pipeline := service.NewPipeline(cfg.IncludeMissionReason || importIncludeMission)
	importer := service.NewJSONImporter(db, deputyStore, activityStore, agendaStore)

	failed := 0
	for _, path := range args {
		select {
		case <-ctx.Done():
			log.Println("Import cancelled")
			os.Exit(1)
		default:
		}

		if strings.EqualFold(filepath.Ext(path), ".json") {
			if err := importJSONFile(ctx, importer, path); err != nil {
				log.Printf("ERROR: %s: %v", path, err)
				failed++
			}
			continue
		}
		if err := importAttendanceFile(ctx, pipeline, sessionStore, path); err != nil {
			log.Printf("ERROR: %s: %v", path, err)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func importJSONFile(ctx context.Context, importer *service.JSONImporter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	kind, total, err := importer.Import(ctx, data)
	if err != nil {
		return err
	}
	log.Printf("%s: imported %d %s entries", path, total, kind)
	return nil
}

func importAttendanceFile(ctx context.Context, pipeline *service.Pipeline, sessions *store.SessionStore, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := pipeline.Run(file)
	if err != nil {
		var stage *service.StageError
		if errors.As(err, &stage) {
			for _, v := range stage.Violations {
				log.Printf("  line %d: %s (%s): %s", v.Line, v.Deputy, v.Status, v.Kind)
			}
		}
		return err
	}

	save, err := sessions.SaveIngest(ctx, result.Session, result.Records, importReplace)
	if err != nil {
		var conflict *store.ErrSessionExists
		if errors.As(err, &conflict) {
			log.Printf("%s: session %s already loaded (use --replace to overwrite)", path, conflict.Existing.Code)
			return err
		}
		return err
	}

	log.Printf("%s: session %s: %d inserted, %d new deputies, %d duplicates ignored",
		path, result.Session.Code, save.Inserted, save.NewDeputies, save.Duplicates)
	return nil
}
