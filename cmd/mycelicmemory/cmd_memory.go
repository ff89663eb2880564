package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/core/internal/storage"
)

var (
	storeImportance float64
	queryTopK       int
	querySession    string
	deleteMode      string
)

// storeCmd implements store_memory_with_conflict_detection (spec §4.7).
var storeCmd = &cobra.Command{
	Use:   "store <content>",
	Short: "Store a memory with extraction and contradiction detection",
	Long: `Persists the given text as a memory node, runs the Extraction Pipeline
over it, and reconciles any extracted facts against existing ones through
the Contradiction Engine before they are committed.

Examples:
  mycelicmemory store "I moved to San Francisco."
  mycelicmemory store "My goal is to run a marathon." --importance 0.8`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content := strings.Join(args, " ")
		runStore(content)
	},
}

// queryCmd implements retrieve_context / query_across_sessions (spec §4.6, §4.7).
var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve ranked context for a natural-language query",
	Long: `Classifies the query, runs the weighted hybrid retrieval pipeline, and
prints the ranked results with their per-component score breakdown.

Examples:
  mycelicmemory query "where do I live"
  mycelicmemory query "what happened recently" --top-k 5`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		runQuery(query)
	},
}

// forgetCmd implements delete_memory (spec §4.1, §4.7).
var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a memory by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runForget(args[0])
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(forgetCmd)

	storeCmd.Flags().Float64VarP(&storeImportance, "importance", "i", 0.5, "importance in [0,1]")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of results (0 = config default)")
	queryCmd.Flags().StringVar(&querySession, "session", "", "narrow results to this session id")
	forgetCmd.Flags().StringVar(&deleteMode, "mode", "node_only", "node_only, cascade, node_and_outgoing, node_and_incoming")
}

func runStore(content string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	result, err := fac.StoreMemoryWithConflictDetection(context.Background(), content, userID, storeImportance, nil)
	if err != nil {
		fatalf("Error storing memory: %v", err)
	}

	fmt.Printf("Stored memory %s\n", result.MemoryID)
	if len(result.Facts) > 0 {
		fmt.Println("Facts:")
		for _, f := range result.Facts {
			fmt.Printf("  (%s, %s, %s) [%s, %.2f]\n", f.Subject, f.Predicate, f.Object, f.PredicateCategory, f.Confidence)
		}
	}
	if len(result.Entities) > 0 {
		fmt.Println("Entities:")
		for _, e := range result.Entities {
			fmt.Printf("  %s (%s)\n", e.Name, e.Type)
		}
	}
	for _, c := range result.Contradictions {
		fmt.Printf("Contradiction: type=%s resolution=%s confidence=%.2f\n", c.Type, c.Resolution, c.Confidence)
	}
	if result.Duplicates > 0 {
		fmt.Printf("Skipped %d duplicate fact(s)\n", result.Duplicates)
	}
}

func runQuery(query string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	resp, err := fac.RetrieveContext(context.Background(), query, userID, querySession, queryTopK)
	if err != nil {
		fatalf("Error querying: %v", err)
	}

	fmt.Printf("Query type: %s (strategies: %s, %dms)\n\n", resp.QueryType, strings.Join(resp.StrategiesUsed, ", "), resp.ElapsedMS)
	for i, r := range resp.Results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Node.Content)
		fmt.Printf("   id=%s layer=%s reason=%s\n", r.Node.ID, r.Node.Layer, r.Reason)
		fmt.Printf("   vector=%.2f keyword=%.2f recency=%.2f importance=%.2f utility=%.2f fact_match=%.2f\n",
			r.Breakdown.Vector, r.Breakdown.Keyword, r.Breakdown.Recency, r.Breakdown.Importance, r.Breakdown.Utility, r.Breakdown.FactMatch)
		fmt.Println()
	}
	if len(resp.Results) == 0 {
		fmt.Println("No results above threshold.")
	}
}

func runForget(id string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	if err := fac.DeleteMemory(id, storage.DeleteMode(deleteMode)); err != nil {
		fatalf("Error deleting memory: %v", err)
	}
	fmt.Printf("Deleted memory %s\n", id)
}
