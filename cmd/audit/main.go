package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"notarium/internal/audit"
	"notarium/internal/cache"
	"notarium/internal/check"
	"notarium/internal/config"
	"notarium/internal/gateway"
	"notarium/internal/logging"
	"notarium/internal/meta"
	"notarium/internal/search"
	"notarium/internal/versions"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		gw  gateway.Gateway
		err error
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Info().Msg("using postgres gateway")
		gw, err = gateway.OpenPostgres(ctx, cfg.DatabaseURL)
	} else {
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite gateway")
		gw, err = gateway.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("gateway connection failed")
	}
	defer gw.Close()

	var stubCache *cache.StubCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		stubCache, err = cache.New(cfg.RedisURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer stubCache.Close()
	}

	var index *search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		index = search.New(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer index.Close()
	}

	var archive *versions.Archive
	if strings.TrimSpace(cfg.ArchiveDir) != "" {
		archive = versions.NewArchive(cfg.ArchiveDir)
	}

	engine := meta.New(log, nil)
	wire, err := check.NewWireValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("wire schema failed to compile")
	}
	service := audit.New(gw, engine, check.New(engine), wire, index, archive, cfg.User, cfg.BatchSize, log)

	report, err := service.Sweep(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("audit sweep failed")
	}

	// Repairs changed the listings; a stale cached tree would re-show the
	// drift the sweep just fixed.
	if stubCache != nil && report.Repaired > 0 {
		stubCache.Invalidate(ctx)
	}

	for _, f := range report.Findings {
		fmt.Println(f)
	}
	if !report.Clean() {
		os.Exit(1)
	}
}
