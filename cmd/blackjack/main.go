package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" help:"Play at the terminal"`
	Simulate SimulateCmd      `cmd:"" help:"Play a strategy over many rounds and report the expected return"`
	Serve    ServeCmd         `cmd:"" help:"Run the WebSocket table server"`
	Rules    RulesCmd         `cmd:"" help:"Print the effective rules"`
	History  HistoryCmd       `cmd:"" help:"Summarise recorded rounds"`
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Blackjack rules and settlement engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
