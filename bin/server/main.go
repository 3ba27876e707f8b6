// embercore-server runs the persistence core as a standalone daemon,
// mostly useful for soak testing a data directory outside the game
// engine.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/emberforge/embercore/server"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	dir := flag.String("dir", filepath.Join(os.Getenv("HOME"), ".embercore"), "Where to keep the database and settings.")

	flag.Parse()

	config, err := server.LoadConfig(*dir)
	if err != nil {
		log.Fatal(err)
	}

	if config.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    config.LogMaxSizeMB,
			MaxBackups: config.LogMaxBackups,
		})
	}

	srv, err := server.New(config)
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("embercore running on %q", *dir)
	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
