// Command gridd serves a result database: an HTTP API for reading tables,
// charts and the run log, and the gRPC RecordService remote workers write to.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/gridrun/internal/gridd"
	"github.com/GoSim-25-26J-441/gridrun/internal/rpc"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/config"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

func main() {
	var configPath string
	var grpcAddr string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "plan or settings file (optional)")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides settings)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides settings)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	if grpcAddr != "" {
		settings.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		settings.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewText(settings.LogLevel, os.Stdout))

	st, err := store.Open(settings.DatabaseURL)
	if err != nil {
		logger.Error("failed to open store", "database_url", settings.DatabaseURL, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// TODO: Configure gRPC server security (e.g., TLS, authentication)
	// before exposing it beyond a trusted network.
	grpcServer := grpc.NewServer()
	rpc.RegisterRecordServer(grpcServer, gridd.NewRecordGRPCServer(st))

	grpcLis, err := net.Listen("tcp", settings.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", settings.GRPCAddr, "error", err)
		stop()
		st.Close()
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              settings.HTTPAddr,
		Handler:           gridd.NewHTTPServer(st).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", settings.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", settings.HTTPAddr, "database", st.Path())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
