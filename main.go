package main

import (
	"github.com/awnumar/memguard"
	"github.com/idena-network/idena-wallet-connect/config"
	"gopkg.in/urfave/cli.v1"
	"os"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	app := cli.NewApp()
	app.Name = "github.com/idena-network/idena-wallet-connect"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Config file (.json, .yaml or .yml)",
			Value: "config.json",
		},
		cli.IntFlag{
			Name:  "verbosity",
			Usage: "Log verbosity 0-5, overrides the config value",
			Value: -1,
		},
	}
	app.Action = func(context *cli.Context) error {
		appConfig := config.LoadConfig(context.String("config"))
		if verbosity := context.Int("verbosity"); verbosity >= 0 {
			appConfig.Verbosity = verbosity
		}
		startServer(appConfig)
		return nil
	}
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
