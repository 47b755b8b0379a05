package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/way365/ledger-client/cli"
	"github.com/way365/ledger-client/storage"
	cli2 "github.com/urfave/cli"
)

func main() {
	logger := storage.InitLogger(os.Getenv("LOG_LEVEL"))

	sign := make(chan os.Signal, 1)
	signal.Notify(sign, os.Interrupt)
	go func() {
		<-sign
		fmt.Fprintln(os.Stdout, "\naborted")
		os.Exit(0)
	}()

	app := cli2.NewApp()

	app.Name = "ledger-client"
	app.Usage = "build, sign and submit transfers; look up transactions by hash"
	app.UsageText = "ledger-client [global options] [HASH | command]"
	app.Version = "1.3.0"
	app.Flags = cli.GlobalFlags()
	app.Action = cli.DefaultAction(os.Stdin, os.Stdout)
	app.Commands = []cli2.Command{
		cli.GetSendCommand(os.Stdin, os.Stdout),
		cli.GetViewCommand(os.Stdin, os.Stdout),
		cli.GetBalanceCommand(os.Stdin, os.Stdout),
		cli.GetHistoryCommand(os.Stdin, os.Stdout),
	}

	err := app.Run(os.Args)
	if err != nil {
		logger.Fatal().Err(err).Msg("ledger-client")
	}
}
