// Command journeyctl inspects and seeds journey data from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/heartnote/backend/internal/config"
	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/internal/store"
)

var CLI struct {
	Driver string `help:"Database driver (sqlite or mysql). Defaults to DB_DRIVER."`
	DSN    string `help:"Database DSN. Defaults to DB_DSN." name:"dsn"`

	Stats    StatsCmd    `cmd:"" help:"Print journey statistics for a user."`
	List     ListCmd     `cmd:"" help:"Print one page of a journey category."`
	Favorite FavoriteCmd `cmd:"" help:"Favorite or unfavorite a message for a user."`
	Seed     SeedCmd     `cmd:"" help:"Load the three-message sample journey for a user."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("journeyctl"),
		kong.Description("Inspect the journey a user has built from favorited messages."),
		kong.UsageOnError(),
	)

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	_ = logger.Init(logger.Config{Level: cfg.Log.Level})

	if CLI.Driver != "" {
		cfg.Database.Driver = CLI.Driver
	}
	if CLI.DSN != "" {
		cfg.Database.DSN = CLI.DSN
	}

	appCtx, err := newContext(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer appCtx.Close()

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Context is handed to every command's Run method.
type Context struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *journey.Engine
	Out    io.Writer
}

func newContext(ctx context.Context, cfg *config.Config) (*Context, error) {
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &Context{
		Ctx:    ctx,
		Store:  st,
		Engine: journey.NewEngine(st, journey.ConfigFrom(cfg.Journey)),
		Out:    os.Stdout,
	}, nil
}

// Close releases the store.
func (c *Context) Close() {
	_ = c.Store.Close()
}
