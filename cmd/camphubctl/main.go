// Command camphubctl runs CampHub's data repair, migration and account
// maintenance operations against a MongoDB database.
//
// Connection settings come from flags, then CAMPHUB_MONGO_URI and
// CAMPHUB_MONGO_DATABASE, which may be set in a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/camphub/internal/app/maintenance"
	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	envFile  string
	mongoURI string
	dbName   string
	timeout  time.Duration
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "camphubctl",
	Short: "CampHub maintenance tool",
	Long: `Repair, migrate and inspect CampHub data.

Every operation is idempotent and safe to re-run. Results are printed as
JSON on stdout; progress and errors go to stderr.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; explicit --env-file must exist.
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		if mongoURI == "" {
			mongoURI = envOr("CAMPHUB_MONGO_URI", "mongodb://localhost:27017")
		}
		if dbName == "" {
			dbName = envOr("CAMPHUB_MONGO_DATABASE", "camphub")
		}
		return wafflemongo.ValidateURI(mongoURI)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file with CAMPHUB_* settings")
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI (or set CAMPHUB_MONGO_URI)")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", "", "Database name (or set CAMPHUB_MONGO_DATABASE)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(reactivateCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openService connects and returns the maintenance service with a cleanup
// func. Tests replace it to run against a throwaway database.
var openService = func(ctx context.Context) (*maintenance.Service, func(), error) {
	logger := newLogger()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetAppName("camphubctl"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping %s: %w", mongoURI, err)
	}
	db := client.Database(dbName)
	audit := auditlog.New(activitystore.New(db), logger, auditlog.Config{})

	cleanup := func() {
		_ = client.Disconnect(context.Background())
		_ = logger.Sync()
	}
	return maintenance.New(db, audit, logger), cleanup, nil
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withService runs fn with a connected service under the --timeout
// deadline.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *maintenance.Service) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, svc)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
