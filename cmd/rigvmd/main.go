// Command rigvmd is a demo HTTP harness around the VM, reduced to the
// minimum needed to drive the VM end to end over HTTP for manual poking.
// It is not a host surface the VM itself defines.
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	l, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("%s", err)
	}
	zap.ReplaceGlobals(l)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		l.Fatal("loading config", zap.Error(err))
	}

	srv := NewServer(cfg, l)
	if err := srv.Start(); err != nil {
		l.Fatal("server exited", zap.Error(err))
	}
}
