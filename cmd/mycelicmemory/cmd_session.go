package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionType string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversational sessions",
}

// sessionStartCmd implements start_session (spec §4.7).
var sessionStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Start a session, auto-detecting an id if none is given",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		runSessionStart(id)
	},
}

// sessionEndCmd implements end_session (spec §4.7).
var sessionEndCmd = &cobra.Command{
	Use:   "end <id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSessionEnd(args[0])
	},
}

// sessionMemoriesCmd implements get_session_memories (spec §4.7).
var sessionMemoriesCmd = &cobra.Command{
	Use:   "memories <id>",
	Short: "List memories recorded under a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSessionMemories(args[0])
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionMemoriesCmd)

	sessionStartCmd.Flags().StringVar(&sessionType, "type", "conversation", "session type")
}

func runSessionStart(id string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	sess, err := fac.StartSession(id, sessionType, nil)
	if err != nil {
		fatalf("Error starting session: %v", err)
	}
	fmt.Printf("Started session %s (%s)\n", sess.ID, sess.Type)
}

func runSessionEnd(id string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	if err := fac.EndSession(id); err != nil {
		fatalf("Error ending session: %v", err)
	}
	fmt.Printf("Ended session %s\n", id)
}

func runSessionMemories(id string) {
	fac, _, err := openFacade()
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer fac.Close()

	nodes, err := fac.GetSessionMemories(id)
	if err != nil {
		fatalf("Error: %v", err)
	}
	for i, n := range nodes {
		fmt.Printf("%d. [%s] %s\n", i+1, n.ID, n.Content)
	}
	fmt.Printf("\n%d memories in session %s\n", len(nodes), id)
}
