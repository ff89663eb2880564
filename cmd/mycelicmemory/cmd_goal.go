package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goal clusters (spec §4.5 Goal Clustering)",
}

// goalRegisterCmd implements register_goal (spec §4.5).
var goalRegisterCmd = &cobra.Command{
	Use:   "register <memory-id> <content...>",
	Short: "Register a memory as a goal cluster root",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runGoalRegister(args[0], strings.Join(args[1:], " "))
	},
}

// goalContextCmd implements coaching_context (spec §4.5).
var goalContextCmd = &cobra.Command{
	Use:   "context <goal-id>",
	Short: "Print the coaching context summary for a goal cluster",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runGoalContext(args[0])
	},
}

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalRegisterCmd)
	goalCmd.AddCommand(goalContextCmd)
}

func runGoalRegister(memoryID, content string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	cluster, err := fac.RegisterGoal(memoryID, content, userID)
	if err != nil {
		fatalf("Error registering goal: %v", err)
	}
	fmt.Printf("Registered goal cluster %s for memory %s\n", cluster.ID, memoryID)
}

func runGoalContext(goalID string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	ctx, err := fac.CoachingContext(goalID)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if ctx == nil {
		fatalf("Goal cluster not found: %s", goalID)
	}
	fmt.Printf("Goal: %s\n", ctx.GoalContent)
	fmt.Printf("Progress: %d  Blockers: %d  Motivations: %d  Insights: %d\n",
		ctx.ProgressCount, ctx.BlockerCount, ctx.MotivationCount, ctx.InsightCount)
	fmt.Printf("Emotional trend: %s\n", ctx.Trend)
}
