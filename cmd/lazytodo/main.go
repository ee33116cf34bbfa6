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

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/metrics"
	"github.com/Joseda-hg/lazytodo/internal/web"
)

func main() {
	configPathFlag := flag.String("config", "", "config file path (.json or .toml)")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	dbDriverFlag := flag.String("db-driver", "", "database driver: sqlite or postgres")
	dsnFlag := flag.String("dsn", "", "postgres connection string")
	portFlag := flag.Int("port", 0, "web server port")
	logLevelFlag := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	bootLog := logger.New("lazytodo", "info")

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		bootLog.WithError(err).Fatal("failed to resolve config path")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog.WithError(err).Fatal("failed to load config")
	}
	cfg, err = config.ApplyEnv(cfg, os.Getenv)
	if err != nil {
		bootLog.WithError(err).Fatal("invalid environment")
	}

	if *dbDriverFlag != "" {
		cfg.DBDriver = *dbDriverFlag
	}
	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if *dsnFlag != "" {
		cfg.DBDSN = *dsnFlag
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazytodo.db")
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = 8080
	}

	log := logger.New("lazytodo", cfg.LogLevel)

	if err := config.Save(cfgPath, cfg); err != nil {
		log.WithError(err).Fatal("failed to save config")
	}

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		log.WithError(err).Fatal("invalid database driver")
	}

	store, closeStore, err := openStore(dialect, cfg)
	if err != nil {
		log.WithError(err).WithField("driver", dialect).Fatal("failed to open database")
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, log, fmt.Sprintf(":%d", cfg.WebPort), web.NewServer(store, log, metrics.New()).Handler()); err != nil {
		log.WithError(err).Error("server failed")
		closeStore()
		os.Exit(1)
	}
}

func serve(ctx context.Context, log *logrus.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Infof("Web server running at http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dialect db.Dialect, cfg config.Config) (*db.Store, func(), error) {
	if dialect == db.DialectSQLite {
		if err := config.EnsureDir(cfg.DBPath); err != nil {
			return nil, nil, err
		}
	}

	sqlDB, err := db.Open(dialect, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	return db.NewStore(sqlDB, dialect), func() { _ = sqlDB.Close() }, nil
}
