/*
ridesim batch simulator

Runs the discrete-event ride-hailing simulator to completion against a
fixed road network and order table, writes the order/fleet exports and a
computed metrics report to disk, and prints a console summary.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simreport"
)

// Config holds the batch run configuration, loaded from environment
// variables the way cmd/server/main.go loads its own Config.
type Config struct {
	NetworkFile        string
	OrdersFile         string
	OutputDir          string
	StartTime          int
	TimeWindow         int
	UntilStep          int
	TaxiCount          int
	MatchStrategy      string
	RepositionStrategy string
	WaitingThreshold   int
	MaxPickupTime      int
	MaxRepositionTime  int
	ClusterCount       int
	DemandFraction     float64
	Seed               int64
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

	simConfig := simcore.SimulatorConfig{
		StartTime:          config.StartTime,
		TimeWindow:         config.TimeWindow,
		TaxiCount:          config.TaxiCount,
		MatchStrategy:      config.MatchStrategy,
		RepositionStrategy: config.RepositionStrategy,
		WaitingThreshold:   config.WaitingThreshold,
		MaxPickupTime:      config.MaxPickupTime,
		MaxRepositionTime:  config.MaxRepositionTime,
		ExportOrders:       true,
		ExportFleet:        true,
		Seed:               config.Seed,
		ClusterCount:       config.ClusterCount,
		DemandFraction:     config.DemandFraction,
	}

	sim, err := simcore.NewSimulator(network, orders, simConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct simulator")
	}

	log.Info().Int("until_step", config.UntilStep).Int64("seed", config.Seed).
		Msg("starting simulation run")

	result, err := sim.Run(context.Background(), config.UntilStep)
	if err != nil {
		log.Fatal().Err(err).Msg("simulation run failed")
	}

	metrics := simreport.Compute(result.Orders, result.Fleet)

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create output directory")
	}

	if err := simreport.WriteJSON(filepath.Join(config.OutputDir, "orders.json"), result.Orders); err != nil {
		log.Fatal().Err(err).Msg("failed to write orders export")
	}
	if err := simreport.WriteJSON(filepath.Join(config.OutputDir, "fleet.json"), result.Fleet); err != nil {
		log.Fatal().Err(err).Msg("failed to write fleet export")
	}
	if err := simreport.WriteJSON(filepath.Join(config.OutputDir, "metrics.json"), metrics); err != nil {
		log.Fatal().Err(err).Msg("failed to write metrics report")
	}

	printSummary(result, metrics)

	log.Info().Str("output_dir", config.OutputDir).Msg("simulation run complete")
}

func printSummary(result simcore.RunResult, metrics simreport.MetricsReport) {
	fmt.Printf("run %s (seed %d)\n", result.ID, result.Seed)
	fmt.Printf("  duration:          %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Printf("  orders:            %d\n", metrics.OrderCount)
	fmt.Printf("  response rate:     %.3f\n", metrics.ResponseRate)
	fmt.Printf("  avg response wait: %.2f\n", metrics.AvgResponseWait)
	fmt.Printf("  avg pickup time:   %.2f\n", metrics.AvgPickupAfterAssignment)
	fmt.Printf("  avg trip time:     %.2f\n", metrics.AvgTripTime)
	fmt.Printf("  vehicle occupancy: %.3f\n", metrics.AvgVehicleOccupancyRate)
}

func loadConfig() *Config {
	return &Config{
		NetworkFile:        getEnv("NETWORK_FILE", "testdata/network.json"),
		OrdersFile:         getEnv("ORDERS_FILE", "testdata/orders.json"),
		OutputDir:          getEnv("OUTPUT_DIR", "output"),
		StartTime:          getEnvInt("START_TIME", 0),
		TimeWindow:         getEnvInt("TIME_WINDOW", 60),
		UntilStep:          getEnvInt("UNTIL_STEP", 480),
		TaxiCount:          getEnvInt("TAXI_COUNT", 50),
		MatchStrategy:      getEnv("MATCH_STRATEGY", "nearest"),
		RepositionStrategy: getEnv("REPOSITION_STRATEGY", "random"),
		WaitingThreshold:   getEnvInt("WAITING_THRESHOLD", 300),
		MaxPickupTime:      getEnvInt("MAX_PICKUP_TIME", 300),
		MaxRepositionTime:  getEnvInt("MAX_REPOSITION_TIME", 60),
		ClusterCount:       getEnvInt("CLUSTER_COUNT", 5),
		DemandFraction:     getEnvFloat("DEMAND_FRACTION", 0.2),
		Seed:               int64(getEnvInt("SEED", 1)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var parsed int
		if _, err := fmt.Sscanf(value, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var parsed float64
		if _, err := fmt.Sscanf(value, "%f", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}

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
