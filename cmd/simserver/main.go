/*
ridesim simulator service

Exposes the discrete-event ride-hailing simulator over HTTP: trigger runs,
fetch persisted run metrics, and report health. A service-shaped driver
alongside the batch cmd/simulate CLI.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simhttp"
	"github.com/ubi-africa/ridesim/internal/simrun"
)

// Config holds the service configuration.
type Config struct {
	Port            string
	Environment     string
	DatabaseURL     string
	NetworkFile     string
	OrdersFile      string
	ShutdownTimeout time.Duration
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("NODE_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	config := loadConfig()

	network, orders, err := loadFixtures(config.NetworkFile, config.OrdersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load network/order fixtures")
	}

	var pool *pgxpool.Pool
	if config.DatabaseURL != "" {
		pool, err = pgxpool.New(context.Background(), config.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create database pool")
		}
		defer pool.Close()

		runRepo := simrun.NewRunRepository(pool)
		if err := runRepo.CreateRunsTable(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure simulation_runs table")
		}
		log.Info().Msg("database connection established")
	}

	var store simhttp.RunStore
	if pool != nil {
		store = simrun.NewRunRepository(pool)
	} else {
		store = simhttp.NewInMemoryStore()
	}

	handler := simhttp.NewHandler(network, orders, store)
	health := simhttp.NewHealthHandler(pool)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", config.Port).Str("environment", config.Environment).
			Msg("ridesim simulator service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited properly")
}

func loadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("NODE_ENV", "development"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		NetworkFile:     getEnv("NETWORK_FILE", "testdata/network.json"),
		OrdersFile:      getEnv("ORDERS_FILE", "testdata/orders.json"),
		ShutdownTimeout: 30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// networkFixture and orderFixture are the on-disk JSON shapes the fixture
// files use; simserver and simulate share this loading format.

type networkFixture struct {
	Nodes []struct {
		ID int     `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	} `json:"nodes"`
	Edges []struct {
		From   int     `json:"from"`
		To     int     `json:"to"`
		Length float64 `json:"length"`
		Time   int     `json:"time"`
	} `json:"edges"`
}

type orderFixture struct {
	ID          int `json:"id"`
	PickupNode  int `json:"pickup_node"`
	DropoffNode int `json:"dropoff_node"`
	RequestTime int `json:"request_time"`
}

func loadFixtures(networkPath, ordersPath string) (*simcore.RoadNetwork, []simcore.OrderRecord, error) {
	networkData, err := os.ReadFile(networkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading network file: %w", err)
	}
	var nf networkFixture
	if err := json.Unmarshal(networkData, &nf); err != nil {
		return nil, nil, fmt.Errorf("parsing network file: %w", err)
	}

	coords := make(map[int]simcore.Coord, len(nf.Nodes))
	for _, n := range nf.Nodes {
		coords[n.ID] = simcore.Coord{X: n.X, Y: n.Y}
	}
	edges := make([]simcore.Edge, 0, len(nf.Edges))
	for _, e := range nf.Edges {
		edges = append(edges, simcore.Edge{From: e.From, To: e.To, Length: e.Length, Time: e.Time})
	}
	network := simcore.NewRoadNetwork(coords, edges)

	ordersData, err := os.ReadFile(ordersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading orders file: %w", err)
	}
	var ofs []orderFixture
	if err := json.Unmarshal(ordersData, &ofs); err != nil {
		return nil, nil, fmt.Errorf("parsing orders file: %w", err)
	}
	orders := make([]simcore.OrderRecord, 0, len(ofs))
	for _, o := range ofs {
		orders = append(orders, simcore.OrderRecord{
			ID: o.ID, PickupNode: o.PickupNode, DropoffNode: o.DropoffNode, RequestTime: o.RequestTime,
		})
	}

	return network, orders, nil
}
