// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command orbitd hosts the server side of VNP plus the admin HTTP API.
// Configuration loads from the environment via config.Load.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/passadis/orbit/adminapi"
	"github.com/passadis/orbit/config"
	"github.com/passadis/orbit/syncengine"
)

func main() {
	log := slog.Default().With("component", "orbitd")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("could not create data directory", "dir", cfg.DataDir, "err", err)
		os.Exit(1)
	}

	store, err := adminapi.Open(cfg.AdminDBPath)
	if err != nil {
		log.Error("could not open admin database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	host := &syncengine.RepoHost{DataDir: cfg.DataDir}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runAdminAPI(ctx, log, cfg.AdminListenAddr, store)
	runVNPListener(ctx, log, cfg, store, host)
}

func runAdminAPI(ctx context.Context, log *slog.Logger, addr string, store *adminapi.Store) {
	mux := http.NewServeMux()
	adminapi.NewHandler(store).Routes(mux)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info("admin API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("admin API stopped", "err", err)
	}
}

func runVNPListener(ctx context.Context, log *slog.Logger, cfg config.Config, auth syncengine.Authenticator, host *syncengine.RepoHost) {
	var ln net.Listener
	var err error
	if cfg.TLSCertFile != "" {
		cert, certErr := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if certErr != nil {
			log.Error("could not load TLS certificate", "err", certErr)
			os.Exit(1)
		}
		ln, err = tls.Listen("tcp", cfg.ListenAddr, &tls.Config{Certificates: []tls.Certificate{cert}})
	} else {
		ln, err = net.Listen("tcp", cfg.ListenAddr)
	}
	if err != nil {
		log.Error("could not listen", "addr", cfg.ListenAddr, "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	log.Info("VNP listening", "addr", cfg.ListenAddr, "tls", cfg.TLSCertFile != "")
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Error("accept failed", "err", err)
				continue
			}
		}
		go serve(log, conn, auth, host)
	}
}

func serve(log *slog.Logger, conn net.Conn, auth syncengine.Authenticator, host *syncengine.RepoHost) {
	defer conn.Close()
	s := syncengine.NewServer(conn, auth, host)
	if err := s.Serve(); err != nil {
		log.Warn("session ended", "remote", conn.RemoteAddr(), "err", err)
	}
}
