package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/rl1809/flavorhutt/internal/adapter/handler"
	"github.com/rl1809/flavorhutt/internal/app"
	"github.com/rl1809/flavorhutt/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	// Start reconcile workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.ReconcileWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			a.Purchases.RunReconciler(ctx, id)
		}(i)
	}
	log.Printf("started %d reconcile workers", cfg.ReconcileWorkers)

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPCPort != "" {
		grpcServer = grpc.NewServer()
		handler.RegisterPurchaseServer(grpcServer, handler.NewGRPCHandler(a.Purchases))

		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			log.Printf("gRPC server listening on :%s", cfg.GRPCPort)
			if err := grpcServer.Serve(lis); err != nil {
				log.Printf("gRPC server error: %v", err)
			}
		}()
	}

	// Initialize HTTP server
	router := handler.NewRouter(handler.NewHTTPHandler(a.Purchases, a.Catalog), handler.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("FlavorHutt listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	if grpcServer != nil {
		grpcServer.GracefulStop()
		log.Println("gRPC server stopped")
	}

	// In-flight handlers are done; stop the reconcilers
	cancel()
	wg.Wait()
	if n := a.Purchases.PendingReconciliations(); n > 0 {
		log.Printf("CRITICAL: %d sales left unreconciled at shutdown", n)
	}
	log.Println("workers stopped")

	a.Close()
	log.Println("connections closed")
}
