package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TC/configs"
	"TC/engine"
	"TC/network"
	"TC/room"

	"github.com/benbjohnson/clock"
)

var (
	addr       string
	engineCmd  string
	depth      int
	clockSecs  int
	debug      bool
	journal    bool
	configFile string
)

func usage() {
	flag.PrintDefaults()
}

func init() {
	flag.StringVar(&addr, "addr", configs.ListenAddress, "the listen address for the websocket server")
	flag.StringVar(&engineCmd, "engine", configs.EngineCommand, "the analysis engine command")
	flag.IntVar(&depth, "depth", configs.EngineSearchDepth, "the engine search depth")
	flag.IntVar(&clockSecs, "clock", configs.DefaultClockSeconds, "the starting clock per side in seconds")
	flag.BoolVar(&debug, "debug", false, "log debug info")
	flag.BoolVar(&journal, "journal", configs.UseJournal, "journal outbound events to disk")
	flag.StringVar(&configFile, "config", "", "the room properties file, overridden by explicit flags")

	flag.Usage = usage
}

func main() {
	flag.Parse()
	if configFile != "" {
		configs.CheckError(configs.LoadRoomConfig(configFile))
	}
	configs.SetDebug(debug)
	if configs.LogToFile {
		f, err := os.OpenFile(fmt.Sprintf("logs/logfiles_%v.log", time.Now().String()), os.O_RDWR|os.O_CREATE, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.Writer(f))
	}

	// Explicit flags win over the properties file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			configs.ListenAddress = addr
		case "engine":
			configs.EngineCommand = engineCmd
		case "depth":
			configs.EngineSearchDepth = depth
		case "clock":
			configs.DefaultClockSeconds = clockSecs
		case "journal":
			configs.UseJournal = journal
		}
	})

	srv := network.NewServer()
	spawn := func() (room.MoveSelector, error) {
		return engine.Spawn(configs.EngineCommand)
	}
	ctx, err := room.NewContext(srv, spawn, clock.New())
	if err != nil {
		log.Fatalf("failed to start the analysis engine %q: %v", configs.EngineCommand, err)
	}
	srv.Attach(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.ServeWS)

	httpSrv := &http.Server{Addr: configs.ListenAddress, Handler: mux}
	go func() {
		configs.DPrintf("room listening on %s", configs.ListenAddress)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	configs.DPrintf("shutting down")
	httpSrv.Close()
	ctx.Close()
}
