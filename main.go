package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"profile-service/config"
	"profile-service/db"
	"profile-service/handlers"
	"profile-service/middleware"
	"profile-service/routes"
	"profile-service/secretmanager" // Ensure this is available in production.
	"profile-service/store"
	"profile-service/telemetry"
	"profile-service/utils"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	loadEnv        = godotenv.Load
	loadConfig     = config.Load
	connectDB      = db.Connect
	createSchema   = db.CreateSchema
	newValkeyStore = store.NewValkeyStore
	initTelemetry  = telemetry.Init
	listenAndServe = http.ListenAndServe
	getSecret      = secretmanager.GetSecret
	logFatal       = log.Fatal
)

func loadSecretMap(secretName string) (map[string]string, error) {
	secretJSON, err := getSecret(secretName)
	if err != nil {
		return nil, err
	}
	secrets := make(map[string]string)
	if err := json.Unmarshal([]byte(secretJSON), &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func loadProdSecrets() error {
	adminSecrets, err := loadSecretMap("prod/admin")
	if err != nil {
		return fmt.Errorf("error retrieving admin secret: %w", err)
	}
	for key, value := range adminSecrets {
		os.Setenv(key, value)
	}

	pgSecrets, err := getSecret("prod/postgres")
	if err != nil {
		return fmt.Errorf("error retrieving Postgres secret: %w", err)
	}
	var pgValues map[string]interface{}
	if err := json.Unmarshal([]byte(pgSecrets), &pgValues); err != nil {
		return fmt.Errorf("error parsing Postgres secret JSON: %w", err)
	}
	os.Setenv("DB_USERNAME", pgValues["username"].(string))
	os.Setenv("DB_PASSWORD", pgValues["password"].(string))
	os.Setenv("DB_ENGINE", pgValues["engine"].(string))
	os.Setenv("DB_HOST", pgValues["host"].(string))
	os.Setenv("DB_PORT", fmt.Sprintf("%v", pgValues["port"]))
	os.Setenv("DB_INSTANCE_IDENTIFIER", pgValues["dbInstanceIdentifier"].(string))

	valkeySecrets, err := loadSecretMap("prod/valkey")
	if err == nil {
		for key, value := range valkeySecrets {
			os.Setenv(key, value)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		logFatal(err)
	}
}

func run() error {
	if err := loadEnv(); err != nil {
		log.Println("No .env file found; using system environment variables")
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	log.Println("Environment:", appEnv)

	if appEnv == "prod" {
		if err := loadProdSecrets(); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx := context.Background()
	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	if err := connectDB(cfg.DB); err != nil {
		return err
	}
	if err := createSchema(db.DB); err != nil {
		return err
	}

	valkeyStore, err := newValkeyStore(cfg.Valkey)
	if err != nil {
		return fmt.Errorf("valkey connection error: %w", err)
	}
	defer valkeyStore.Close()

	var googleAuth *utils.GoogleAuthenticator
	if cfg.Google.ClientID != "" {
		redirectURL := fmt.Sprintf("%s/api/auth/google/callback", cfg.Links.BaseURL)
		googleAuth, err = utils.NewGoogleAuthenticator(ctx, cfg.Google, redirectURL)
		if err != nil {
			return fmt.Errorf("google authenticator error: %w", err)
		}
	} else {
		log.Println("GOOGLE_CLIENT_ID not set; Google sign-in disabled")
	}

	var verifier middleware.GoogleVerifier
	var authFlow handlers.GoogleAuthFlow
	if googleAuth != nil {
		verifier = googleAuth
		authFlow = googleAuth
	}

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(cfg, valkeyStore, authFlow),
		Profiles:     handlers.NewProfileHandler(cfg, verifier),
		Slugs:        handlers.NewSlugHandler(cfg),
		NfcLinks:     handlers.NewNfcLinkHandler(cfg),
		Appointments: handlers.NewAppointmentHandler(cfg),
		Dashboards:   handlers.NewDashboardHandler(cfg),
	}
	router := routes.SetupRoutes(cfg, h, verifier, valkeyStore)

	corsOpts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Device-ID", "Admin-Token"}),
		gorillaHandlers.AllowCredentials(),
	}

	handler := middleware.RequestLogger(router)
	handler = otelhttp.NewHandler(handler, "profile-service")
	handler = gorillaHandlers.CORS(corsOpts...)(handler)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s in %s environment (CORS: %s)", port, cfg.AppEnv, strings.Join(cfg.CORS.AllowedOrigins, ","))
	return listenAndServe(":"+port, handler)
}
