package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/slotwire/internal/config"
	"github.com/dshills/slotwire/internal/logging"
	"github.com/dshills/slotwire/internal/luaslot"
	"github.com/dshills/slotwire/internal/metrics"
	"github.com/dshills/slotwire/internal/signal"
	"github.com/dshills/slotwire/internal/signal/dispatch"
	"github.com/dshills/slotwire/internal/watcher"
)

// serve runs until SIGINT or SIGTERM.
func serve(cfg config.Config, out io.Writer) error {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runApp(ctx, cfg, out)
}

// runApp wires the watcher to its receivers and blocks until ctx is done.
func runApp(ctx context.Context, cfg config.Config, out io.Writer) error {
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.WithComponent("slotwire")

	exec := dispatch.NewExecutor(dispatch.WithStackCapture(wantStacks(cfg.Log.Level)))
	reg := signal.NewRegistry(
		signal.WithCompaction(cfg.Registry.CompactMin, cfg.Registry.CompactRatio),
		signal.WithExecutor(exec),
	)

	w, err := watcher.New(
		watcher.WithRegistry(reg),
		watcher.WithCapacity(cfg.Stream.Capacity),
		watcher.WithIgnoreHidden(cfg.Watch.IgnoreHidden),
		watcher.WithIgnorePatterns(cfg.Watch.Ignore),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithEventFilter(dropChmodOnly),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	connectLogging(w, log)

	if cfg.Script.Path != "" {
		host, err := connectScript(w, cfg.Script)
		if err != nil {
			return err
		}
		defer host.Close()
	}

	for _, p := range cfg.Watch.Paths {
		watch := w.Watch
		if cfg.Watch.Recursive {
			watch = w.WatchRecursive
		}
		if err := watch(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}
	log.WithField("paths", len(w.WatchedPaths())).Info("watching")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consume(ctx, w.Changed, out)
	})

	if cfg.Metrics.Enabled {
		prom := metrics.NewProm(reg)
		prom.Collector.AddStream(w.Changed.Name(), w.Changed)
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics.Addr, prom.Handler(), log)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		// Ends the consumer's iteration even if it is parked.
		w.Changed.Stop()
		return nil
	})

	err = g.Wait()
	log.WithFields(logrus.Fields{
		"emissions": reg.Stats().Emissions,
		"delivered": w.Changed.Stats().Delivered,
		"slot_avg":  exec.Stats().AvgDuration,
	}).Info("shutting down")
	return err
}

// wantStacks reports whether slot panics should carry a stack trace.
func wantStacks(level string) bool {
	l, err := logrus.ParseLevel(level)
	return err == nil && l >= logrus.DebugLevel
}

// dropChmodOnly filters out permission-only changes.
func dropChmodOnly(ev watcher.Event) bool {
	return ev.Op != watcher.OpChmod
}

// logReceiver anchors the logging slots so they can be dropped together.
type logReceiver struct {
	log *logrus.Entry
}

func connectLogging(w *watcher.Watcher, log *logrus.Entry) *logReceiver {
	r := &logReceiver{log: log}
	w.Watched.Connect(signal.SlotFunc(func(_ any, path string) {
		r.log.WithField("path", path).Debug("watch added")
	}).Named("log.watched"), r)
	w.Failed.Connect(signal.SlotFunc(func(_ any, err error) {
		r.log.WithError(err).Warn("watcher failed")
	}).Named("log.failed"), r)
	return r
}

func connectScript(w *watcher.Watcher, sc config.ScriptConfig) (*luaslot.Host, error) {
	host, err := luaslot.NewHost()
	if err != nil {
		return nil, err
	}
	if err := host.DoFile(sc.Path); err != nil {
		host.Close()
		return nil, fmt.Errorf("loading script %s: %w", sc.Path, err)
	}
	slot, err := luaslot.New[watcher.Event](host, sc.Function)
	if err != nil {
		host.Close()
		return nil, err
	}
	w.Changed.Connect(slot, host)
	return host, nil
}

// consume prints every change pulled from the stream until the iteration
// ends or ctx is done.
func consume(ctx context.Context, changes *signal.Stream[watcher.Event], out io.Writer) error {
	for ev := range changes.All(ctx) {
		if _, err := fmt.Fprintf(out, "%s %-12s %s\n", ev.Time.Format(time.TimeOnly), ev.Op, ev.Path); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
