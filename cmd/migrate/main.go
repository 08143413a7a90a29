package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|redo|status|to|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version for -cmd=to")
	flag.Parse()

	var migrations fs.FS = migrate.Embedded()
	if *dir != "" {
		migrations = os.DirFS(*dir)
	}

	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.SourceDir
		}
		path, err := migrate.Scaffold(out, *name, time.Now())
		if err != nil {
			exitf("create: %v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.Validate(migrations); err != nil {
			exitf("invalid migrations:\n%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "sql handle unavailable", err)
		os.Exit(1)
	}
	runner, err := migrate.NewRunner(sqlDB, migrations, logg)
	if err != nil {
		logg.Error(ctx, "migration runner", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "redo":
		err = runner.Redo(ctx)
	case "to":
		version, parseErr := strconv.ParseInt(*target, 10, 64)
		if parseErr != nil {
			exitf("-version must be a migration number, got %q", *target)
		}
		err = runner.To(ctx, version)
	case "status":
		err = printStatus(ctx, runner)
	default:
		exitf("unknown -cmd %q", *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	lines, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, line := range lines {
		fmt.Fprintf(w, "%d\t%s\t%s\n", line.Version, line.State, line.Path)
	}
	return w.Flush()
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
