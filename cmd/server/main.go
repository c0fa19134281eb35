package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socketcraft.ai/internal/config"
	"socketcraft.ai/internal/persistence/journal"
	"socketcraft.ai/internal/persistence/sqlitestore"
	"socketcraft.ai/internal/sockets"
	"socketcraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/socketcraft.yaml", "config path (defaults are used if the file does not exist)")
		dbPath     = flag.String("db", "./data/items.db", "sqlite item database")
		journalDir = flag.String("journal", "./data", "event journal directory (empty to disable)")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	logger := newLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("config not found; using defaults", zap.String("path", *configPath))
		cfg, err = config.Defaults(), nil
	}
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		logger.Fatal("open item db", zap.Error(err))
	}
	defer store.Close()

	opts := []sockets.Option{sockets.WithLogger(logger.Named("engine"))}
	if dir := strings.TrimSpace(*journalDir); dir != "" {
		events := journal.NewEventLogger(dir)
		defer events.Close()
		opts = append(opts, sockets.WithEventSink(events))
	}
	engine, err := sockets.New(store, cfg, opts...)
	if err != nil {
		logger.Fatal("engine", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	if envBool("SC_ENABLE_ADMIN_HTTP", true) {
		admin := &adminHandlers{store: store, engine: engine}
		mux.HandleFunc("/admin/v1/items", loopbackOnly(admin.items))
		mux.HandleFunc("/admin/v1/slots", loopbackOnly(admin.slots))
	} else {
		logger.Info("admin endpoints disabled (SC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("SC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(engine, cfg.Namespace, logger.Named("ws")).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", *addr), zap.String("db", *dbPath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
