package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvanbeek/boodschap/internal/database"
	"github.com/dvanbeek/boodschap/internal/logging"
	"github.com/dvanbeek/boodschap/internal/receipt"
	"github.com/dvanbeek/boodschap/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("BOODSCHAP_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BOODSCHAP_DB_PATH")
	if dbPath == "" {
		dbPath = "boodschap.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	s3cfg := receipt.S3Config{
		Endpoint:  os.Getenv("BOODSCHAP_S3_ENDPOINT"),
		Bucket:    os.Getenv("BOODSCHAP_S3_BUCKET"),
		Region:    os.Getenv("BOODSCHAP_S3_REGION"),
		AccessKey: os.Getenv("BOODSCHAP_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("BOODSCHAP_S3_SECRET_KEY"),
	}
	var receiptStorage receipt.Storage
	if s3cfg.Configured() {
		receiptStorage = receipt.NewS3Storage(s3cfg)
		logger.Info("receipt storage", "backend", "s3", "bucket", s3cfg.Bucket)
	} else {
		dir := os.Getenv("BOODSCHAP_RECEIPT_DIR")
		if dir == "" {
			dir = "receipts"
		}
		receiptStorage = receipt.NewDirStorage(dir)
		logger.Info("receipt storage", "backend", "dir", "path", dir)
	}

	srv := server.New(db, receiptStorage, logger)

	// Prune stale rate-limit entries in the background.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Boodschap running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
