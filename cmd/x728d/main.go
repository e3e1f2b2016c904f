// Command x728d supervises an X728 UPS hat: it reports mains loss, drives the
// cooling fan, handles the hat's shutdown/reboot button and starts the hat's
// power-off sequence when the battery runs low.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/sweeney/x728-supervisor/internal/battery"
	"github.com/sweeney/x728-supervisor/internal/config"
	"github.com/sweeney/x728-supervisor/internal/errors"
	"github.com/sweeney/x728-supervisor/internal/gpio"
	"github.com/sweeney/x728-supervisor/internal/logger"
	"github.com/sweeney/x728-supervisor/internal/logic"
	"github.com/sweeney/x728-supervisor/internal/mqtt"
	"github.com/sweeney/x728-supervisor/internal/status"
	"github.com/sweeney/x728-supervisor/internal/supervisor"
	"github.com/sweeney/x728-supervisor/internal/system"
	"github.com/sweeney/x728-supervisor/internal/thermal"
	"github.com/sweeney/x728-supervisor/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "x728d: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(os.Stdout, cfg.LogLevel, logger.IsService())
	if err != nil {
		fmt.Fprintf(os.Stderr, "x728d: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Str("code", string(errors.CodeOf(err))).Msg("fatal")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	intake := supervisor.NewIntake()

	board, err := gpio.NewRealBoard(cfg.GPIO, intake.PushEdge)
	if err != nil {
		return errors.Wrap(errors.CodeInitFailed, "init gpio", err)
	}
	defer board.Close()

	gauge, err := battery.NewI2CReader(cfg.I2C, log)
	if err != nil {
		return errors.Wrap(errors.CodeInitFailed, "init battery gauge", err)
	}
	defer gauge.Close()

	therm := thermal.NewSysfsReader(cfg.ThermalPath)

	if cfg.PrintState {
		return printState(context.Background(), os.Stdout, board, gauge, therm)
	}

	sys, err := system.New(cfg.SystemMethod, log)
	if err != nil {
		return errors.Wrap(errors.CodeInitFailed, "init system control", err)
	}

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}

	rep := &reporter{tracker: tracker, log: log}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(mqtt.Config{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID}, log)
		if err != nil {
			return errors.Wrap(errors.CodeInitFailed, "init mqtt", err)
		}
		defer pub.Close()
		rep.publisher = pub
		rep.conn = pub
	}

	sup := supervisor.New(supervisorOptions(cfg), supervisor.Deps{
		Board:     board,
		Battery:   gauge,
		Thermal:   therm,
		System:    sys,
		Publisher: rep.publisher,
		Status:    rep.conn,
		Tracker:   tracker,
		Logger:    log,
	}, intake)
	if err := sup.Init(context.Background()); err != nil {
		return err
	}

	rep.system("STARTUP", "")

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().Str("config", cfg.File).Msgf("started: %s", cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runUntilSignal(sup, sigCh, rep)
}

type runner interface {
	Run(ctx context.Context) error
}

// runUntilSignal runs the supervisor until a signal arrives or it fails, and
// reports SHUTDOWN either way.
func runUntilSignal(sup runner, sig <-chan os.Signal, rep *reporter) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := sup.Run(ctx); err != nil {
		rep.system("SHUTDOWN", "FATAL")
		return err
	}

	r := <-reason
	rep.log.Info().Str("signal", r).Msg("shutting down")
	rep.system("SHUTDOWN", r)
	return nil
}

// reporter publishes lifecycle events with a full status snapshot.
type reporter struct {
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus
	tracker   *status.Tracker
	log       zerolog.Logger
}

func (r *reporter) system(event, reason string) {
	if r.publisher == nil {
		return
	}
	if r.conn != nil {
		r.tracker.SetMQTTConnected(r.conn.IsConnected())
	}
	snap := r.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := r.publisher.PublishSystem(ev); err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	r.log.Info().Str("event", event).Msg("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func supervisorOptions(cfg *config.Config) supervisor.Options {
	return supervisor.Options{
		Interval:       cfg.Interval,
		Heartbeat:      cfg.Heartbeat,
		PowerOffHold:   cfg.PowerOffHold,
		SampleInterval: cfg.Button.Sample,
		Thresholds:     cfg.Thresholds(),
	}
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		IntervalMs:        cfg.Interval.Milliseconds(),
		HeartbeatMs:       cfg.Heartbeat.Milliseconds(),
		FanEnabled:        cfg.Fan.Enabled,
		FanOnC:            cfg.Fan.OnC,
		FanOffC:           cfg.Fan.OffC,
		BatteryLowPercent: cfg.BatteryLowPercent,
		RebootMinMs:       cfg.Button.RebootMin.Milliseconds(),
		RebootMaxMs:       cfg.Button.RebootMax.Milliseconds(),
		PowerOffHoldMs:    cfg.PowerOffHold.Milliseconds(),
		Broker:            cfg.MQTT.Broker,
		HTTPAddr:          cfg.HTTPAddr,
	}
}

// printState reads every input once.
func printState(ctx context.Context, w io.Writer, board gpio.Board, gauge battery.Reader, therm thermal.Reader) error {
	asserted, err := board.ACDetect()
	if err != nil {
		return err
	}
	reading, err := gauge.Read(ctx)
	if err != nil {
		return err
	}
	temp, err := therm.ReadCelsius()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Power: %s, Battery: %.2fV %.0f%%, CPU: %dC\n",
		logic.PowerStateFromPin(asserted), reading.Voltage, reading.Capacity, temp)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
