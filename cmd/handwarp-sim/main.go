package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/handwarp/internal/api"
	"github.com/banshee-data/handwarp/internal/config"
	"github.com/banshee-data/handwarp/internal/db"
	"github.com/banshee-data/handwarp/internal/feed"
	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/recorder"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/banshee-data/handwarp/internal/tracking"
	"github.com/banshee-data/handwarp/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Redirection config file (JSON)")
	dbPath      = flag.String("db", "handwarp.db", "SQLite database for run records")
	sourceKind  = flag.String("source", "synthetic", "Tracking source: synthetic, serial or pcap")
	serialPort  = flag.String("port", "/dev/ttyUSB0", "Serial port of the tracker (source=serial)")
	baudRate    = flag.Int("baud", 115200, "Serial baud rate (source=serial)")
	pcapFile    = flag.String("pcap", "", "Capture file to replay (source=pcap)")
	pcapPort    = flag.Int("pcap-port", 9750, "UDP port carrying tracking samples in the capture")
	frames      = flag.Int("frames", 0, "Frames to generate, 0 runs until the study finishes (source=synthetic)")
	realtime    = flag.Bool("realtime", false, "Pace ticks at the configured tick rate")
	listen      = flag.String("listen", "", "Serve the debug and tailsql routes on this address")
	feedAddr    = flag.String("feed", "", "Stream live records over gRPC on this address")
	keypadDist  = flag.Float64("keypad-distance", 0.45, "Keypad plane distance in front of the body (m)")
	verbose     = flag.Bool("v", false, "Log prompts and PINs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// Keypad geometry of the simulated rig.
const (
	keyPitch    = 0.03
	keypadDrop  = 0.1 // keypad centre below the body origin
	restOffsetZ = 0.3 // hand rest distance in front of the body
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("handwarp-sim"))
		return
	}
	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	rc, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg, err := session.ConfigFromRedirection(rc)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	centre := geom.Vec{Y: -keypadDrop, Z: *keypadDist}
	pool, buttons, err := keypadPool(centre, keyPitch, geom.Vec{X: 0.02})
	if err != nil {
		log.Fatalf("failed to build keypad: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	cfgJSON, err := json.Marshal(rc)
	if err != nil {
		log.Fatalf("failed to encode config: %v", err)
	}
	clock := timeutil.NewManualClock(time.Now())
	runID, err := database.CreateRun(db.Run{
		Participant: cfg.Participant,
		StartStep:   cfg.StartStep,
		Technique:   cfg.Technique,
		Selection:   cfg.Selection.String(),
		Curve:       cfg.Curve.String(),
		StudyMode:   cfg.StudyMode,
		Source:      *sourceKind,
		ConfigJSON:  string(cfgJSON),
		Started:     clock.Now(),
	})
	if err != nil {
		log.Fatalf("failed to create run: %v", err)
	}
	log.Printf("run %s: participant=%d start_step=%d source=%s", runID, cfg.Participant, cfg.StartStep, *sourceKind)

	rec := recorder.New(database, runID, recorder.Options{QueueSize: rc.GetRecordQueueSize()})
	var sink session.Sink = rec
	var pub *feed.Publisher
	if *feedAddr != "" {
		pub = feed.NewPublisher(feed.DefaultBuffer)
		sink = session.Tee(rec, pub)
	}

	seed := rc.GetSeed()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s, err := session.New(cfg, session.Options{
		Pool:     pool,
		Keypad:   centre,
		Buttons:  buttons,
		Rand:     rand.New(rand.NewSource(seed)),
		Clock:    clock,
		Sink:     sink,
		Notifier: logNotifier{verbose: *verbose},
	})
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	src, closeSrc, err := openSource(*sourceKind, seed, s, pool, buttons, centre, cfg.DominantHand, clock.Now())
	if err != nil {
		log.Fatalf("failed to open %s source: %v", *sourceKind, err)
	}
	defer closeSrc()

	status := newLiveStatus(runID, rec.Dropped, 30)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		mux := api.NewServer(database, status, rc).ServeMux()
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach admin routes: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, *listen, api.LoggingMiddleware(mux))
		}()
	}

	if pub != nil {
		lis, err := net.Listen("tcp", *feedAddr)
		if err != nil {
			log.Fatalf("failed to listen on %s: %v", *feedAddr, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Serve(ctx, lis, pub); err != nil {
				log.Printf("feed server stopped: %v", err)
			}
		}()
	}

	var interval time.Duration
	if *realtime {
		interval = rc.GetTickInterval()
	}
	n, loopErr := runLoop(ctx, s, src, clock, interval, rc.GetTickInterval(), status.observe)
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		log.Printf("tick loop stopped: %v", loopErr)
	}

	rec.Close()
	stats := s.Stats()
	if err := database.FinishRun(runID, time.Now(), stats, rec.Dropped()); err != nil {
		log.Printf("failed to finish run: %v", err)
	}
	log.Printf("run %s: %d frames, %d/%d pins correct, %d targets, %d records written, %d dropped",
		runID, n, stats.PinsCorrect, stats.PinsCompleted, stats.TargetsSelected, rec.Written(), rec.Dropped())
	if pub != nil {
		log.Printf("feed: %d events sent, %d dropped", pub.Sent(), pub.Dropped())
	}

	if (*listen != "" || pub != nil) && ctx.Err() == nil {
		log.Printf("serving until interrupted")
		<-ctx.Done()
	}
	stop()
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads path. A missing file at the default path falls back to
// the built-in defaults.
func loadConfig(path string) (*config.RedirectionConfig, error) {
	rc, err := config.LoadRedirectionConfig(path)
	if err != nil && path == config.DefaultConfigPath && errors.Is(err, os.ErrNotExist) {
		log.Printf("%s not found, using built-in defaults", path)
		return config.DefaultRedirectionConfig(), nil
	}
	return rc, err
}

// openSource returns the tracking source named kind and a function
// releasing it.
func openSource(kind string, seed int64, s *session.Session, pool *redirect.Pool, buttons []geom.Vec, centre geom.Vec, hand tracking.Hand, start time.Time) (tracking.Source, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case "synthetic":
		rest := geom.Vec{X: 0.1, Y: -0.25, Z: centre.Z - restOffsetZ}
		gen := tracking.NewSyntheticGenerator(seed, rest, buttons, centre.Z)
		gen.MaxFrames = *frames
		gen.DominantTip = hand
		gen.Aim = aimAtNextDigit(s, pool)
		gen.Start = start
		return gen, noop, nil
	case "serial":
		src, err := tracking.OpenSerial(*serialPort, tracking.SerialOptions{BaudRate: *baudRate}, nil)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "pcap":
		if *pcapFile == "" {
			return nil, nil, errors.New("-pcap is required")
		}
		samples, err := tracking.ReadPCAP(*pcapFile, *pcapPort)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("loaded %d samples from %s", len(samples), *pcapFile)
		return tracking.NewSliceSource(samples), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", kind)
	}
}

func serve(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}
