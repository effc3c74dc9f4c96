package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"gopkg.in/yaml.v3"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dispatcher statistics",
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("output")

		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client, done := NewAdminClient()
		defer done()

		stats, err := client.Statistics(ctx)
		if err != nil {
			log.Fatal(err)
		}

		sort.Slice(stats.Workers, func(i, j int) bool {
			return stats.Workers[i].Id < stats.Workers[j].Id
		})

		switch format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				log.Fatal(err)
			}
		case "yaml":
			// Keep the JSON field names
			data, err := json.Marshal(stats)
			if err != nil {
				log.Fatal(err)
			}
			var doc interface{}
			if err := json.Unmarshal(data, &doc); err != nil {
				log.Fatal(err)
			}
			if err := yaml.NewEncoder(os.Stdout).Encode(doc); err != nil {
				log.Fatal(err)
			}
		case "text":
			printStatistics(stats)
		default:
			log.Fatalf("Unknown output format: %s", format)
		}
	},
}

func printStatistics(stats *dispatcher.Statistics) {
	fmt.Printf("Tasks\n")
	fmt.Printf("  Waiting:     %d\n", stats.WaitingTasks)
	fmt.Printf("  Running:     %d\n", stats.RunningTasks)
	fmt.Printf("  Submitted:   %d\n", stats.SubmittedTasks)
	fmt.Printf("  Completed:   %d\n", stats.CompletedTasks)
	fmt.Printf("  Failed:      %d\n", stats.FailedTasks)
	fmt.Printf("  Rescheduled: %d\n", stats.RescheduledTasks)
	fmt.Println()

	workerCount := len(stats.Workers)
	workerPad := fmt.Sprint(len(fmt.Sprint(workerCount)))

	fmt.Printf("Workers (%d)\n", workerCount)
	for index, worker := range stats.Workers {
		fmt.Printf("%"+workerPad+"d: %s\n", index+1, worker.WorkerInfo)
		fmt.Printf("    slots: %d free, %d active\n", worker.Slots, worker.Active)
	}
}

func init() {
	statsCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(statsCmd)
}
