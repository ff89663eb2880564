package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/core/pkg/config"
)

// doctorCmd reports schema version, table counts, and whether the
// in-memory Vector Index has drifted from the persisted node count
// (grounded on teacher's cmd_doctor.go, adapted per SPEC_FULL.md §C
// "Database statistics / doctor").
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report storage and vector-index health",
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

// statsCmd implements get_memory_stats (spec §4.7) as a standalone command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print memory storage statistics",
	Run: func(cmd *cobra.Command, args []string) {
		runStats()
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statsCmd)
}

func runDoctor() {
	fmt.Println("mycelicmemory doctor")
	fmt.Println("=====================")
	fmt.Println()

	fmt.Print("Configuration... ")
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
	fmt.Printf("  Config dir: %s\n", config.ConfigPath())
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Vector index: %s\n", cfg.VectorIndex.Kind)
	fmt.Println()

	fmt.Print("Storage... ")
	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		fmt.Println("NOT INITIALIZED (will be created on first use)")
		return
	}

	fac, _, err := openFacade()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	defer fac.Close()
	fmt.Println("OK")

	stats, err := fac.GetMemoryStats()
	if err != nil {
		fatalf("Error reading stats: %v", err)
	}
	fmt.Printf("  Schema version: %d\n", stats.SchemaVersion)
	fmt.Printf("  Nodes: %d  Edges: %d  Facts: %d  Entities: %d  Goal clusters: %d  Sessions: %d\n",
		stats.NodeCount, stats.EdgeCount, stats.FactCount, stats.EntityCount, stats.GoalCount, stats.SessionCount)
	fmt.Printf("  File size: %d bytes\n", stats.FileSizeBytes)

	indexSize := fac.IndexSize()
	fmt.Printf("  Vector index size: %d (persisted nodes: %d)\n", indexSize, stats.NodeCount)
	if indexSize != stats.NodeCount {
		fmt.Println("  WARNING: vector index size does not match node count -- possible drift between the in-memory ANN index and the persisted nodes.")
	} else {
		fmt.Println("  Vector index matches persisted node count.")
	}
}

func runStats() {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	stats, err := fac.GetMemoryStats()
	if err != nil {
		fatalf("Error reading stats: %v", err)
	}
	fmt.Printf("Path: %s\n", stats.Path)
	fmt.Printf("Schema version: %d\n", stats.SchemaVersion)
	fmt.Printf("Nodes: %d\n", stats.NodeCount)
	fmt.Printf("Edges: %d\n", stats.EdgeCount)
	fmt.Printf("Facts: %d\n", stats.FactCount)
	fmt.Printf("Entities: %d\n", stats.EntityCount)
	fmt.Printf("Goal clusters: %d\n", stats.GoalCount)
	fmt.Printf("Sessions: %d\n", stats.SessionCount)
	fmt.Printf("File size: %d bytes\n", stats.FileSizeBytes)
}
