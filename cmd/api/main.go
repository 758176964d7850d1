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

	"github.com/joho/godotenv"
	"github.com/shoplite/shoplite/internal/application/admin"
	"github.com/shoplite/shoplite/internal/config"
	"github.com/shoplite/shoplite/internal/infrastructure/dynamo"
	jwtinfra "github.com/shoplite/shoplite/internal/infrastructure/jwt"
	s3infra "github.com/shoplite/shoplite/internal/infrastructure/s3"
	"github.com/shoplite/shoplite/internal/infrastructure/smtp"
	"github.com/shoplite/shoplite/internal/infrastructure/sns"
	transporthttp "github.com/shoplite/shoplite/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — verification still works without bearer tokens).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for product images.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — only sms-channel codes need it).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	tables := cfg.DynamoTables
	deps := &transporthttp.Deps{
		IdentityRepo: dynamo.NewIdentityRepo(dynamoClient, tables.Identities),
		SessionRepo:  dynamo.NewSessionRepo(dynamoClient, tables.Sessions),
		OtpRepo:      dynamo.NewOtpRepo(dynamoClient, tables.OtpCodes),
		CartRepo:     dynamo.NewCartRepo(dynamoClient, tables.CartItems),
		ProductRepo:  dynamo.NewProductRepo(dynamoClient, tables.Products),
		ImageStore:   s3Store,
		AdminTables: map[string]admin.TableBrowser{
			"identities": dynamo.NewTableRepo(dynamoClient, tables.Identities, "identity_key", ""),
			"sessions":   dynamo.NewTableRepo(dynamoClient, tables.Sessions, "session_id", ""),
			"otp_codes":  dynamo.NewTableRepo(dynamoClient, tables.OtpCodes, "otp_id", ""),
			"cart_items": dynamo.NewTableRepo(dynamoClient, tables.CartItems, "session_id", "product_id"),
			"products":   dynamo.NewTableRepo(dynamoClient, tables.Products, "product_id", ""),
		},
		Mailer:      mailer,
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
