package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/santatracker/internal/app"
	"github.com/dmitrijs2005/santatracker/internal/buildinfo"
	"github.com/dmitrijs2005/santatracker/internal/config"
	"github.com/dmitrijs2005/santatracker/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel)

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
