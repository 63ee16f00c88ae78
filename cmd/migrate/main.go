// cmd/migrate applies the embedded schema migrations.
//
//	migrate [-database URL] up|down|version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	os.Exit(run(os.Args[1:], logger.Logger))
}

func run(args []string, lg zerolog.Logger) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := fs.String("database", os.Getenv("DATABASE_URL"), "postgres connection URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dsn == "" {
		lg.Error().Msg("missing -database or DATABASE_URL")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "usage: migrate [-database URL] up|down|version")
		return 2
	}

	switch cmd := fs.Arg(0); cmd {
	case "up":
		if err := postgres.MigrateUp(*dsn); err != nil {
			lg.Error().Err(err).Msg("migrate up failed")
			return 1
		}
		lg.Info().Msg("migrations applied")

	case "down":
		if err := postgres.MigrateDown(*dsn); err != nil {
			lg.Error().Err(err).Msg("migrate down failed")
			return 1
		}
		lg.Info().Msg("migrations rolled back")

	case "version":
		v, dirty, ok, err := postgres.MigrationVersion(*dsn)
		if err != nil {
			lg.Error().Err(err).Msg("read version failed")
			return 1
		}
		if !ok {
			lg.Info().Msg("no migrations applied")
			return 0
		}
		lg.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")

	default:
		lg.Error().Str("command", cmd).Msg("unknown command")
		return 2
	}
	return 0
}
