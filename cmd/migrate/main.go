package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/khosimport/internal/config"
	"github.com/JonMunkholm/khosimport/internal/logging"
	"github.com/JonMunkholm/khosimport/migrations"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory (default: embedded migrations)")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("set goose dialect", "error", err)
		os.Exit(1)
	}

	source := *dir
	if source == "" {
		goose.SetBaseFS(migrations.FS)
		source = "."
	}

	var args []string
	if flag.NArg() > 1 {
		args = flag.Args()[1:]
	}

	if err := goose.Run(command, db, source, args...); err != nil {
		slog.Error("goose "+command, "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied", "command", command)
}
