package main

import (
	"context"
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

	persistlog "railgrid.dev/internal/persistence/log"
	"railgrid.dev/internal/persistence/savegame"
	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/tuning"
	"railgrid.dev/internal/sim/world"
	"railgrid.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting fresh)")
		sizeX      = flag.Int("size_x", 512, "map width in tiles")
		sizeY      = flag.Int("size_y", 512, "map height in tiles")
		companies  = flag.Int("companies", 8, "number of companies")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		savePath   = flag.String("save", "", "savegame path (default: <data>/worlds/<world>/save.db)")
		autosave   = flag.Duration("autosave", 5*time.Minute, "autosave interval (0 to disable)")
		fresh      = flag.Bool("fresh", false, "start fresh even when a savegame exists")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := world.ValidateDispatch(); err != nil {
		logger.Fatalf("command dispatch: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load catalogs: %v", err)
		}
		logger.Printf("no railtypes.yaml in %s; using built-in catalog", *configDir)
		cats = catalogs.Default()
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Default()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)
	sp := strings.TrimSpace(*savePath)
	if sp == "" {
		sp = filepath.Join(worldDir, "save.db")
	}

	var w *world.World
	if !*fresh {
		if _, statErr := os.Stat(sp); statErr == nil {
			w, err = savegame.Load(sp, cats, tune)
			if err != nil {
				logger.Fatalf("load savegame %s: %v", sp, err)
			}
			logger.Printf("resumed from savegame %s", sp)
		}
	}
	if w == nil {
		w = world.New(world.WorldConfig{
			ID:        *worldID,
			SizeX:     *sizeX,
			SizeY:     *sizeY,
			Seed:      *seed,
			Companies: *companies,
		}, cats, tune)
		logger.Printf("fresh world %s %dx%d seed=%d", *worldID, *sizeX, *sizeY, *seed)
	}

	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()
	w.AuditFn = func(e world.AuditEntry) {
		if err := auditLog.WriteAudit(e); err != nil {
			logger.Printf("audit write: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := ws.NewServer(w, logger)

	if *autosave > 0 {
		go func() {
			t := time.NewTicker(*autosave)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					var saveErr error
					srv.WithWorld(func(w *world.World) {
						saveErr = savegame.Save(sp, w, cats)
					})
					if saveErr != nil {
						logger.Printf("autosave: %v", saveErr)
					} else {
						logger.Printf("autosaved to %s", sp)
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		srv.WithWorld(func(w *world.World) {
			fmt.Fprintf(rw, "# HELP railgrid_company_money Company cash on hand.\n")
			fmt.Fprintf(rw, "# TYPE railgrid_company_money gauge\n")
			for _, co := range w.Companies() {
				fmt.Fprintf(rw, "railgrid_company_money{world=%q,company=\"%d\"} %d\n", *worldID, co.ID, co.Money)
			}
			fmt.Fprintf(rw, "# HELP railgrid_company_signals Signal faces owned per company.\n")
			fmt.Fprintf(rw, "# TYPE railgrid_company_signals gauge\n")
			for _, co := range w.Companies() {
				fmt.Fprintf(rw, "railgrid_company_signals{world=%q,company=\"%d\"} %d\n", *worldID, co.ID, co.Signals)
			}
			fmt.Fprintf(rw, "# HELP railgrid_company_rail_pieces Rail pieces per company and rail type.\n")
			fmt.Fprintf(rw, "# TYPE railgrid_company_rail_pieces gauge\n")
			for _, co := range w.Companies() {
				for rt, n := range co.RailPieces {
					if n == 0 {
						continue
					}
					label := w.Cats.RailTypes.Info(rt).Label
					fmt.Fprintf(rw, "railgrid_company_rail_pieces{world=%q,company=\"%d\",rail_type=%q} %d\n", *worldID, co.ID, label, n)
				}
			}
		})
	})

	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = httpSrv.Shutdown(shCtx)
	}()

	logger.Printf("listening on %s", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}

	// Final save on the way out.
	var saveErr error
	srv.WithWorld(func(w *world.World) {
		saveErr = savegame.Save(sp, w, cats)
		w.Close()
	})
	if saveErr != nil {
		logger.Printf("final save: %v", saveErr)
	}
	logger.Printf("bye")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
