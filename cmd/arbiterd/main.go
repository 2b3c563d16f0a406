package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/vkarov/stateduel/arbiter"
	"github.com/vkarov/stateduel/arbiter/arbiterdb"
)

func realMain() error {
	cfg, err := arbiter.LoadConfig()
	if err != nil {
		return err
	}

	// Flags take precedence over the environment.
	httpAddr := flag.String("httpaddr", cfg.HTTPAddr, "HTTP listen address")
	dataDir := flag.String("datadir", cfg.DataDir, "directory for the session store")
	debugLevel := flag.String("debuglevel", cfg.DebugLevel, "log verbosity")
	flag.Parse()
	cfg.HTTPAddr = *httpAddr
	cfg.DataDir = *dataDir
	cfg.DebugLevel = *debugLevel

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("ARBT")
	if lvl, ok := slog.LevelFromString(cfg.DebugLevel); ok {
		log.SetLevel(lvl)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := arbiterdb.NewBoltDB(filepath.Join(cfg.DataDir, "arbiter.db"))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer db.Close()

	srv, err := arbiter.NewServer(cfg, db, arbiter.NewAccountBook(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Arbiter listening on %s", cfg.HTTPAddr)
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
