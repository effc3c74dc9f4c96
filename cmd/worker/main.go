package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
	"github.com/srand/multinode/pkg/worker"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Multinode worker, executes tasks on behalf of a dispatcher",
	Run: func(cmd *cobra.Command, args []string) {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			log.Fatal(err)
		}
		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}

		// Load worker configuration from file or environment.
		workerConfig, err := LoadConfig()
		if err != nil {
			log.Fatal(err)
		}

		workerConfig.Log()

		// Validate the worker configuration.
		if err := workerConfig.Validate(); err != nil {
			log.Fatal(err)
		}

		ctx, cancel := utils.TerminateOnSignal()
		defer cancel()

		worker.NewWorker(workerConfig).Run(ctx)
		log.Info("Worker terminated")
	},
}

var subtaskCmd = &cobra.Command{
	Use:    "subtask",
	Short:  "Worker subprocess, started by the worker",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := worker.RunSubtask(task.NewRegistry()); err != nil {
			log.Fatal(err)
		}
	},
}

func main() {
	rootCmd.Flags().StringP("dispatcher-uri", "s", "tcp://dispatcher:12456", "Dispatcher service URI")
	rootCmd.Flags().String("secret", "", "Shared secret of the dispatcher")
	rootCmd.Flags().IntP("threads", "j", 0, "Maximum thread count, defaults to the number of CPUs")
	rootCmd.Flags().Duration("reconnect-delay", 0, "Delay between connection attempts")
	rootCmd.Flags().Int("idle-processes", 0, "Number of idle subprocesses kept per worker")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("dispatcher_uri", rootCmd.Flags().Lookup("dispatcher-uri"))
	viper.BindPFlag("secret", rootCmd.Flags().Lookup("secret"))
	viper.BindPFlag("threads", rootCmd.Flags().Lookup("threads"))
	viper.BindPFlag("reconnect_delay", rootCmd.Flags().Lookup("reconnect-delay"))
	viper.BindPFlag("pool.idle_processes", rootCmd.Flags().Lookup("idle-processes"))
	viper.SetEnvPrefix("multinode")
	viper.AutomaticEnv()

	viper.SetConfigName("worker.yaml")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/multinode/")
	viper.AddConfigPath("$HOME/.config/multinode")
	viper.AddConfigPath(".")
	viper.ReadInConfig()

	rootCmd.AddCommand(subtaskCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
