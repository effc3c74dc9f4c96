package main

import (
	"github.com/spf13/cobra"
	"github.com/srand/multinode/pkg/log"
)

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule",
	Short: "Wake the dispatcher to assign waiting tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client, done := NewAdminClient()
		defer done()

		if err := client.Reschedule(ctx); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(rescheduleCmd)
}
