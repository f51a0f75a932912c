package cmd

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"github.com/pmarques/hemiciclo/internal/config"
	"github.com/pmarques/hemiciclo/internal/handlers"
	"github.com/pmarques/hemiciclo/internal/service"
	"github.com/pmarques/hemiciclo/internal/store"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance analyzer web server",
	Long:  `Start the HTTP server that accepts uploads and serves aggregated attendance, activity and agenda statistics as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		// The flag wins over PORT from the environment when given.
		if !cmd.Flags().Changed("port") {
			port = cfg.Port
		}

		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := store.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		deputyStore := store.NewDeputyStore(db)
		sessionStore := store.NewSessionStore(db)
		activityStore := store.NewActivityStore(db)
		agendaStore := store.NewAgendaStore(db)

		pipeline := service.NewPipeline(cfg.IncludeMissionReason)
		importer := service.NewJSONImporter(db, deputyStore, activityStore, agendaStore)

		app := fiber.New(fiber.Config{
			AppName: "Hemiciclo",
		})

		app.Use(logger.New())
		app.Use(cors.New())

		app.Post("/upload", handlers.UploadHandler(pipeline, sessionStore, importer))

		app.Get("/deputados", handlers.DeputiesHandler(deputyStore))
		app.Get("/deputados/filtrados", handlers.DeputiesFilteredHandler(deputyStore))
		app.Get("/deputados/:nome/detalhes", handlers.DeputyDetailHandler(deputyStore))

		app.Get("/sessoes", handlers.SessionsHandler(sessionStore))
		app.Get("/estatisticas/sessoes", handlers.SessionStatsHandler(sessionStore))
		app.Get("/estatisticas/analise-avancada", handlers.AnalysisHandler(sessionStore))
		app.Get("/substituicoes", handlers.SubstitutionsHandler(sessionStore))

		app.Get("/atividade/deputados", handlers.ActivityHandler(activityStore))
		app.Get("/atividade/estatisticas", handlers.ActivityStatsHandler(activityStore, deputyStore))
		app.Get("/atividade/agenda", handlers.AgendaHandler(agendaStore))

		log.Printf("Starting server on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
