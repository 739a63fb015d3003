// Command contact-sensor reads a door, window, flood or rain contact on each
// wake, reports it to an MQTT broker and sleeps until the contact changes or
// a timer fires.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/contact-sensor/internal/clock"
	"github.com/sweeney/contact-sensor/internal/config"
	"github.com/sweeney/contact-sensor/internal/event"
	"github.com/sweeney/contact-sensor/internal/gpio"
	"github.com/sweeney/contact-sensor/internal/lifecycle"
	"github.com/sweeney/contact-sensor/internal/logic"
	"github.com/sweeney/contact-sensor/internal/mqtt"
	"github.com/sweeney/contact-sensor/internal/network"
	"github.com/sweeney/contact-sensor/internal/power"
	"github.com/sweeney/contact-sensor/internal/retain"
	"github.com/sweeney/contact-sensor/internal/status"
	"github.com/sweeney/contact-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	pin := flag.Int("pin", -1, "GPIO line offset of the contact (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config, empty to disable)")
	once := flag.Bool("once", false, "Run one cycle and exit instead of sleeping")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath, *broker, *pin, *httpAddr)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, *once, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(path, broker string, pin int, httpAddr string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if pin >= 0 {
		cfg.Sensor.Pin = pin
	}
	if httpAddr != "" {
		cfg.HTTP = httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, once, printState bool) error {
	if printState {
		return printSensorState(cfg)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	store, err := retain.OpenBolt(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open retained state: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe := network.NewLinkDriver(cfg.WiFi.Interface, func(event.Event) {})
	hwid, err := resolveHardwareID(probe, store)
	if err != nil {
		return err
	}
	id, err := config.NewIdentity(cfg, hwid)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, id))

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	var ctrl power.Controller = &power.EdgeController{
		Chip:     cfg.Sensor.Chip,
		Pin:      cfg.Sensor.Pin,
		Recorder: store,
	}
	if once {
		ctrl = scheduledController{recorder: store}
	}

	fetcher := clock.NewFetcher(clock.NTPSource{Server: cfg.NTP.Server})

	log.Printf("started: %s on %s pin %d, broker=%s topic=%s", id.Hostname, cfg.Sensor.Chip, cfg.Sensor.Pin, cfg.MQTT.Broker, id.TopicRoot)

	cycle := func(ctx context.Context) (lifecycle.Result, error) {
		q := event.NewQueue(64)
		defer q.Close()

		reader, err := gpio.NewRealReader(cfg.Sensor.Chip, cfg.Sensor.Pin)
		if err != nil {
			return lifecycle.Result{}, fmt.Errorf("init gpio: %w", err)
		}
		defer reader.Close()

		driver := network.NewLinkDriver(cfg.WiFi.Interface, q.Push)
		driver.ManageLink = cfg.WiFi.ManageLink

		transport := mqtt.NewPahoTransport(mqtt.PahoOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: id.Hostname,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, q.Push)

		o := lifecycle.New(lifecycleConfig(cfg, id), lifecycle.Deps{
			Reader:  reader,
			Store:   store,
			Network: network.NewSession(driver, cfg.WiFi.Retries),
			Broker:  mqtt.NewSession(transport, id.TopicRoot),
			Clock:   fetcher,
			Power:   ctrl,
			Events:  q.C(),
			Tracker: tracker,
		})
		return o.Run(ctx)
	}

	return runCycles(ctx, once, cycle)
}

// runCycles repeats cycle until ctx is cancelled or, with once, after the
// first cycle. On the host the process outlives each sleep.
func runCycles(ctx context.Context, once bool, cycle func(context.Context) (lifecycle.Result, error)) error {
	for {
		res, err := cycle(ctx)
		if errors.Is(err, context.Canceled) {
			log.Printf("shutting down")
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("cycle done: boot #%d, %s exit, %d records published", res.Boot.Count, res.Exit, res.Published)
		if once {
			return nil
		}
		if ctx.Err() != nil {
			log.Printf("shutting down")
			return nil
		}
	}
}

// resolveHardwareID prefers the interface MAC. Without one, a random id is
// generated once and kept in retained state so the topic stays stable.
func resolveHardwareID(d network.Driver, store retain.Store) (string, error) {
	if mac, err := d.HardwareAddr(); err == nil && len(mac) > 0 {
		return config.HardwareIDFromMAC(mac), nil
	} else if err != nil {
		log.Printf("no hardware address: %v", err)
	}

	id, err := store.HardwareID()
	if err != nil {
		return "", fmt.Errorf("read hardware id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	if err := store.SetHardwareID(id); err != nil {
		return "", fmt.Errorf("store hardware id: %w", err)
	}
	log.Printf("generated hardware id %s", id)
	return id, nil
}

func lifecycleConfig(cfg *config.Config, id config.Identity) lifecycle.Config {
	return lifecycle.Config{
		Identity: id,
		Credentials: network.Credentials{
			SSID:     cfg.WiFi.SSID,
			Password: cfg.WiFi.Password,
		},
		Firmware:     cfg.Firmware,
		NormalSleep:  cfg.Sleep.Normal,
		BackoffSleep: cfg.Sleep.Backoff,
		AwakeBudget:  cfg.Timing.AwakeBudget,
		TimeOffset:   cfg.NTP.Offset + cfg.NTP.DaylightOffset,
	}
}

func statusConfig(cfg *config.Config, id config.Identity) status.Config {
	return status.Config{
		SensorType:     id.Sensor.Name(),
		Polarity:       id.Polarity.String(),
		Hostname:       id.Hostname,
		TopicRoot:      id.TopicRoot,
		Broker:         cfg.MQTT.Broker,
		HTTPAddr:       cfg.HTTP,
		NormalSleepMs:  cfg.Sleep.Normal.Milliseconds(),
		BackoffSleepMs: cfg.Sleep.Backoff.Milliseconds(),
		AwakeBudgetMs:  cfg.Timing.AwakeBudget.Milliseconds(),
	}
}

func printSensorState(cfg *config.Config) error {
	st, err := cfg.SensorType()
	if err != nil {
		return err
	}
	pol, err := cfg.Polarity()
	if err != nil {
		return err
	}

	reader, err := gpio.NewRealReader(cfg.Sensor.Chip, cfg.Sensor.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	level, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Println(formatSensorState(st, pol, level))
	return nil
}

func formatSensorState(st logic.SensorType, pol logic.Polarity, level bool) string {
	return fmt.Sprintf("%s (%s): %s, level %v", st.Name(), pol, logic.ReadState(st, pol, level), level)
}

// scheduledController ends the process at Sleeping and leaves the next
// wake to an external scheduler such as a systemd timer.
type scheduledController struct {
	recorder power.CauseRecorder
}

func (c scheduledController) Suspend(ctx context.Context, plan power.SleepPlan) error {
	log.Printf("power: exiting instead of sleeping (%s)", plan)
	if err := c.recorder.SetWakeCause(logic.WakeTimer); err != nil {
		return fmt.Errorf("record wake cause: %w", err)
	}
	return nil
}
