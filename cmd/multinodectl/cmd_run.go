package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/processor"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command on a worker",
	Long: `Bundles a directory as a configuration, registers it with the
dispatcher and runs the command in the directory on a worker.
Output of the command is replayed locally.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		repeat, _ := cmd.Flags().GetInt("repeat")

		dir, err := filepath.Abs(dir)
		if err != nil {
			log.Fatal(err)
		}

		conf, err := configuration.FromDirectory(filepath.Base(dir), utils.NewOsFs(), dir)
		if err != nil {
			log.Fatal(err)
		}

		ctx, cancel := utils.TerminateOnSignal()
		defer cancel()

		p, err := processor.Connect(ctx, configData.DispatcherUri, []byte(configData.Secret), conf)
		if err != nil {
			log.Fatal(err)
		}
		defer p.Close()

		if err := run(ctx, p, args, repeat); err != nil {
			var taskErr *task.Error
			if errors.As(err, &taskErr) {
				log.Error(taskErr)
				p.Close()
				os.Exit(1)
			}
			log.Fatal(err)
		}
	},
}

func run(ctx context.Context, p *processor.Processor, args []string, repeat int) error {
	if repeat <= 1 {
		pending, err := p.Request("exec", args)
		if err != nil {
			return err
		}
		return pending.Wait(ctx, nil)
	}

	_, err := processor.Repeat[interface{}](ctx, p, repeat, "exec", args)
	return err
}

func init() {
	runCmd.Flags().StringP("dir", "C", ".", "Directory to bundle as configuration")
	runCmd.Flags().IntP("repeat", "n", 1, "Number of times to run the command")
	rootCmd.AddCommand(runCmd)
}
