// Command cli runs one-off maintenance tasks against the configured stores.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/logger"
	"github.com/google/subcommands"
)

func main() {
	cfg, warnings := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands(cfg) {
		commander.Register(c, "")
	}

	flag.Parse()
	ctx := logger.WithContext(context.Background(), log)
	os.Exit(int(commander.Execute(ctx)))
}
