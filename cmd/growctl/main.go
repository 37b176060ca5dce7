//go:build !(rp2040 || rp2350 || avr)

// Command growctl runs the chamber controller on a host: against a
// simulated board by default, or against real I2C and GPIO with -hw.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growctl-go/bus"
	"growctl-go/services/app"
	"growctl-go/services/chamber"
	"growctl-go/services/config"
	"growctl-go/services/cycle"
	"growctl-go/services/cycle/sqlitestore"
	"growctl-go/services/datalog"
	"growctl-go/services/hal"
	"growctl-go/services/httpapi"
	"growctl-go/services/mqttbridge"
	"growctl-go/x/logx"
)

const svc = "main"

func main() {
	var (
		device  = flag.String("device", "sim", "embedded configuration to load")
		hw      = flag.Bool("hw", false, "drive real hardware through periph")
		i2cName = flag.String("i2c", "", "I2C bus name for -hw; empty picks the first")
		dhtLoop = flag.Int("dht-loops", 1, "DHT22 pulse loop iterations per microsecond for -hw")
		db      = flag.String("db", "", "SQLite database for the cycle record and history")
		httpAdr = flag.String("http", "", "override the HTTP listen address")
		broker  = flag.String("mqtt", "", "override the MQTT broker URL")
		console = flag.Bool("console", false, "serve the command console on stdin")
		debug   = flag.Bool("debug", false, "log at debug level")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	_, logCloser := logx.Init(os.Getenv("LOG_DIR"), "growctl.log", level)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		device: *device, hw: *hw, i2c: *i2cName, dhtLoops: *dhtLoop,
		db: *db, http: *httpAdr, broker: *broker, console: *console,
	}); err != nil {
		logx.Error(svc, "exit", "err", err)
		os.Exit(1)
	}
}

type options struct {
	device   string
	hw       bool
	i2c      string
	dhtLoops int
	db       string
	http     string
	broker   string
	console  bool
}

func run(ctx context.Context, o options) error {
	b := bus.NewBus(32)
	cfgConn := b.NewConnection("config")

	dctx := context.WithValue(ctx, config.CtxDeviceKey, o.device)
	dev, err := config.NewConfigService().Start(dctx, cfgConn)
	if err != nil {
		return err
	}
	if o.http != "" {
		dev.HTTP.Addr = o.http
	}
	if o.broker != "" {
		dev.MQTT.Broker = o.broker
		cfgConn.Publish(cfgConn.NewMessage(config.Topic(config.KeyMQTT), dev.MQTT, true))
	}
	if o.db != "" {
		dev.Storage.DBPath = o.db
	}

	var board app.Board
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	if o.hw {
		hb, c, err := hardwareBoard(o.i2c, o.dhtLoops)
		if err != nil {
			return err
		}
		board = hb
		closers = append(closers, c)
	} else {
		sim, err := app.NewSim(dev.Chamber)
		if err != nil {
			return err
		}
		defer sim.Close()
		go sim.RunPlant(ctx, time.Second)
		board = sim.Board
	}

	if dev.Storage.DBPath != "" {
		st, err := sqlitestore.Open(dev.Storage.DBPath, 0)
		if err != nil {
			return err
		}
		closers = append(closers, st)
		board.Store, board.History = st, st
	} else if dev.Storage.RecordPath != "" {
		board.Store = cycle.FileStore{Path: dev.Storage.RecordPath}
	}
	if dev.Storage.LogDir != "" {
		board.FS = datalog.DirFS{Dir: dev.Storage.LogDir}
	}
	if o.console {
		board.Console = hal.NewStreamPort(os.Stdin, os.Stdout)
	}

	a, err := app.Build(b, dev.ID, dev.Chamber, board)
	if err != nil {
		return err
	}

	go mqttbridge.Start(ctx, b.NewConnection("mqtt"))
	if dev.HTTP.Addr != "" {
		go func() {
			c := chamber.Client{Conn: b.NewConnection("http")}
			if err := httpapi.Serve(ctx, dev.HTTP.Addr, c, os.Stderr); err != nil {
				logx.Error(svc, "http stopped", "err", err)
			}
		}()
	}

	a.Run(ctx)
	logx.Info(svc, "stopped")
	return nil
}
