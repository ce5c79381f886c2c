package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gosocial/internal/chat/repository"
	"gosocial/internal/common"
	"gosocial/internal/config"
	"gosocial/internal/dbmysql"
	"gosocial/internal/wire"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, cleanup, err := wire.InitializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()
	logger := app.Logger
	defer func() { _ = logger.Sync() }()

	if err := dbmysql.Migrate(app.DB); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	logger.Info("database migration completed")

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.EnsureIndexes(indexCtx, app.Mongo); err != nil {
		logger.Fatal("mongo index creation failed", zap.Error(err))
	}
	cancel()

	// No WriteTimeout: it would cut hijacked websocket connections.
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        setupRouter(app),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingUnaryInterceptor(logger)),
	)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		logger.Fatal("failed to listen for grpc", zap.String("port", cfg.Server.GRPCPort), zap.Error(err))
	}

	go func() {
		logger.Info("grpc health server starting", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("http server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websockets are not tracked by http.Server.
	app.Realtime.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("http server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("server gracefully stopped")
}

// setupRouter mounts the websocket gateway, the authenticated REST API,
// health and metrics.
func setupRouter(app *wire.Application) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(app.Logger))

	router.Handle("/ws", app.Realtime).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	app.MediaHandler.RegisterPublicRoutes(router)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthCheckHandler(app)).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(common.BearerAuth(app.Tokens))
	app.ChatHandler.RegisterRoutes(authed)
	app.NotificationHandler.RegisterRoutes(authed)
	app.MediaHandler.RegisterRoutes(authed)

	return router
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func healthCheckHandler(app *wire.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"service":     "gosocial-realtime",
			"connections": app.Registry.TotalConnections(),
			"online":      len(app.Registry.OnlineUsers()),
		})
	}
}

func loggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("grpc call failed", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)), zap.Error(err))
		} else {
			logger.Debug("grpc call", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)))
		}
		return resp, err
	}
}
