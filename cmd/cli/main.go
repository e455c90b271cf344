package main

import (
	"context"
	"log"
	"os"

	"github.com/avolkov/lanferry/internal/buildinfo"
	"github.com/avolkov/lanferry/internal/client/cli"
	"github.com/avolkov/lanferry/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
