package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/litreview/internal/algoclient"
	"github.com/ziadkadry99/litreview/internal/config"
	"github.com/ziadkadry99/litreview/internal/db"
	"github.com/ziadkadry99/litreview/internal/documents"
	"github.com/ziadkadry99/litreview/internal/files"
	"github.com/ziadkadry99/litreview/internal/server"
	"github.com/ziadkadry99/litreview/internal/users"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the document service",
	Long: `Starts the document service used by the web editor: user accounts,
file uploads (forwarded to the algorithm service for indexing), review
documents, section generation and export.`,
	RunE: runBackend,
}

func init() {
	backendCmd.Flags().Int("port", 0, "listen port (overrides backend.port)")
	rootCmd.AddCommand(backendCmd)
}

func runBackend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Backend.Port = port
	}
	if cfg.Backend.JWTSecret == "" {
		return fmt.Errorf("backend.jwt_secret is required (set %sBACKEND__JWT_SECRET)", config.EnvPrefix)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	uploadDir := cfg.UploadDir()
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("creating upload dir %s: %w", uploadDir, err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	auth := users.NewAuth(users.NewStore(database), cfg.Backend.JWTSecret, cfg.Backend.TokenTTL)
	algo := algoclient.New(cfg.Backend.AlgoURL, cfg.Backend.AlgoTimeout)

	srv := server.New(server.Config{
		Name:           "backend",
		Host:           cfg.Backend.Host,
		Port:           cfg.Backend.Port,
		AllowedOrigins: cfg.Backend.AllowedOrigins,
		RequestTimeout: cfg.Backend.RequestTimeout,
	}, log)
	r := srv.Router()

	users.RegisterRoutes(r, auth)
	files.RegisterRoutes(r, files.RoutesDeps{
		Store:          files.NewStore(database),
		Auth:           auth,
		Processor:      algo,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.Backend.MaxUploadMB << 20,
		Log:            log,
	})
	documents.RegisterRoutes(r, documents.RoutesDeps{
		Store:     documents.NewStore(database),
		Auth:      auth,
		Assistant: algo,
		Exporter:  documents.NewExporter(documents.CommandRenderer{Command: cfg.Export.PDFCommand}),
		Log:       log,
	})

	log.Info("document service starting",
		"version", Version,
		"addr", srv.Addr(),
		"database", database.Path(),
		"algo_url", cfg.Backend.AlgoURL,
	)
	return runServer(srv, log)
}
