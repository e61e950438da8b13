package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.capture/internal/capture"
	"github.com/banshee-data/motion.capture/internal/config"
	"github.com/banshee-data/motion.capture/internal/db"
	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/healthsrv"
	"github.com/banshee-data/motion.capture/internal/overlay"
	"github.com/banshee-data/motion.capture/internal/sink"
	"github.com/banshee-data/motion.capture/internal/transport"
	"github.com/banshee-data/motion.capture/internal/version"
)

var (
	exerciseName = flag.String("exercise", "", "Exercise to capture (see -list)")
	catalogPath  = flag.String("catalog", "", "Exercise catalog file (.json, .yaml); the built-in catalog when empty")
	configPath   = flag.String("config", "", "Capture config file (.json)")
	outputDir    = flag.String("out", "", "Directory for session CSV files (overrides config output_dir)")
	journalPath  = flag.String("journal", "", "sqlite session journal (overrides config journal_path)")
	listen       = flag.String("listen", "", "Debug HTTP listen address, e.g. localhost:8080; disabled when empty")
	grpcListen   = flag.String("grpc-listen", "", "gRPC health listen address; disabled when empty")
	devMode      = flag.Bool("dev", false, "Replay recordings from -fixtures instead of opening serial ports")
	fixturesDir  = flag.String("fixtures", "fixtures", "Directory of <role>.txt recordings used in dev mode")
	duration     = flag.Duration("duration", 0, "Stop the capture after this long; 0 runs until interrupted")
	overlayRows  = flag.Int("overlay-rows", overlay.DefaultSize, "Rows kept for the debug overlay")
	listOnly     = flag.Bool("list", false, "List the exercises in the catalog and exit")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("motion-capture %s\n", version.String())
		return
	}

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("failed to load exercise catalog: %v", err)
	}
	if *listOnly {
		printCatalog(os.Stdout, catalog)
		return
	}
	if *exerciseName == "" {
		log.Fatal("-exercise is required (see -list)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := run(ctx, catalog); err != nil {
		log.Fatalf("capture failed: %v", err)
	}
}

func loadCatalog(path string) (*exercise.Catalog, error) {
	if path == "" {
		return exercise.DefaultCatalog(), nil
	}
	return exercise.LoadCatalog(path)
}

func loadConfig(path string) (*config.CaptureConfig, error) {
	if path == "" {
		return config.EmptyCaptureConfig(), nil
	}
	return config.LoadCaptureConfig(path)
}

func printCatalog(w io.Writer, catalog *exercise.Catalog) {
	for _, name := range catalog.Names() {
		cfg, _ := catalog.Lookup(name)
		sensors := make([]string, len(cfg.Sensors))
		for i, id := range cfg.Sensors {
			sensors[i] = id.String()
		}
		fmt.Fprintf(w, "%-32s %2d columns  %s\n", name, len(cfg.Columns), strings.Join(sensors, ", "))
	}
}

// sessionFileName names a session's CSV after the exercise, the start time
// and the first block of the session id.
func sessionFileName(exerciseName, sessionID string, started time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(exerciseName))
	short, _, _ := strings.Cut(sessionID, "-")
	return fmt.Sprintf("%s_%s_%s.csv", slug, started.UTC().Format("20060102T150405Z"), short)
}

// openPorts opens one port per active sensor, from the serial devices in
// cc or, in dev mode, from recordings in fixtures. Ports opened before a
// failure are closed.
func openPorts(ex exercise.Config, cc *config.CaptureConfig, dev bool, fixtures string, open transport.Opener) (map[exercise.SensorID]transport.Port, error) {
	ports := make(map[exercise.SensorID]transport.Port, len(ex.Sensors))
	closeAll := func() {
		for _, p := range ports {
			p.Close()
		}
	}

	for _, id := range ex.Sensors {
		var (
			p   transport.Port
			err error
		)
		if dev {
			p, err = transport.OpenReplay(filepath.Join(fixtures, id.String()+".txt"), cc.GetReplayOptions())
		} else {
			sp, ok := cc.GetPort(id)
			if !ok {
				closeAll()
				return nil, fmt.Errorf("no serial port configured for %s", id)
			}
			p, err = open(sp.Path, sp.PortOptions)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open port for %s: %w", id, err)
		}
		ports[id] = p
	}
	return ports, nil
}

func run(ctx context.Context, catalog *exercise.Catalog) error {
	ex, err := catalog.Lookup(*exerciseName)
	if err != nil {
		return err
	}

	cc, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *outputDir != "" {
		cc.OutputDir = outputDir
	}
	if *journalPath != "" {
		cc.JournalPath = journalPath
	}

	opts := cc.SessionOptions()
	opts.ID = uuid.NewString()
	opts.Output = filepath.Join(cc.GetOutputDir(), sessionFileName(ex.Name, opts.ID, time.Now()))

	if path := cc.GetJournalPath(); path != "" {
		journal, err := db.NewDB(path)
		if err != nil {
			return fmt.Errorf("failed to open session journal: %w", err)
		}
		defer journal.Close()
		opts.Journal = journal
	}

	var health *healthsrv.Server
	if *grpcListen != "" {
		health = healthsrv.New(healthsrv.Config{ListenAddr: *grpcListen})
		if err := health.Start(); err != nil {
			return err
		}
		defer health.Stop()
	}

	ports, err := openPorts(ex, cc, *devMode, *fixturesDir, transport.OpenSerial)
	if err != nil {
		return err
	}

	csvSink := sink.NewCSVSink(opts.Output)
	window := overlay.NewWindow(*overlayRows)
	session, err := capture.NewSession(ex, ports, sink.Multi(csvSink, window), opts)
	if err != nil {
		for _, p := range ports {
			p.Close()
		}
		return err
	}

	var wg sync.WaitGroup
	if *listen != "" {
		mux := http.NewServeMux()
		session.AttachAdminRoutes(mux)
		window.AttachAdminRoutes(mux)
		if j, ok := opts.Journal.(*db.DB); ok {
			j.AttachAdminRoutes(mux)
		}

		server := &http.Server{Addr: *listen, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("failed to start server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				server.Close()
			}
			wg.Wait()
		}()
		log.Printf("debug routes on http://%s/debug/", *listen)
	}

	log.Printf("session %s: %q -> %s", session.ID(), ex.Name, opts.Output)
	if err := session.Start(ctx); err != nil {
		return err
	}

	lastReport := time.Now()
	for ev := range session.Events() {
		if health != nil {
			health.Observe(ev)
		}
		switch ev.Kind {
		case capture.EventStatus:
			log.Print(ev.Message)
		case capture.EventRowCount:
			if time.Since(lastReport) >= 5*time.Second {
				log.Printf("%d rows, %d errors", ev.Rows, ev.Errors)
				lastReport = time.Now()
			}
		case capture.EventAbort:
			log.Printf("ABORT: %s", ev.Message)
		}
	}

	res := session.Wait()
	log.Printf("session %s %s (%s): %d rows, %d errors in %s",
		res.ID, res.State, res.Reason, res.Rows, res.Errors, res.Ended.Sub(res.Started).Round(time.Millisecond))
	for _, c := range res.Cadence {
		log.Printf("  %-10s %6d readings, interval %.1f±%.1f ms (min %.1f, max %.1f)",
			c.Sensor, c.Readings, c.MeanMs, c.StdDevMs, c.MinMs, c.MaxMs)
	}

	if res.State == capture.StateAborted {
		return fmt.Errorf("session aborted: %s: %w", res.Message, res.Err)
	}
	return nil
}
