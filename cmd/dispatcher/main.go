package main

import (
	"fmt"
	"os"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/handshake"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
	"github.com/srand/multinode/pkg/worker"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var config *Config

var rootCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Multinode task dispatcher service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("multinode")
		viper.AutomaticEnv()

		viper.SetConfigName("dispatcher.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/multinode/")
		viper.AddConfigPath("$HOME/.config/multinode")
		viper.AddConfigPath(".")

		viper.ReadInConfig()

		config = &Config{}
		if err := utils.UnmarshalConfig(viper.GetViper(), config); err != nil {
			log.Fatal(err)
		}

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			panic(err)
		}

		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}

		log.Configure(config.LogFile)

		config.SetDefaults()
		config.Log()

		if err := config.Validate(); err != nil {
			log.Fatal(err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := utils.TerminateOnSignal()
		defer cancel()

		protocol.SetMaxPayload(config.MaxPayload)

		// Create the configuration library.
		library, err := config.Library.CreateLibrary(ctx)
		if err != nil {
			log.Fatal(err)
		}

		// Create dispatcher.
		d := dispatcher.NewDispatcher()

		// Execute tasks locally if configured.
		if config.ThreadCount > 0 {
			pool := worker.NewPool(library, &config.Pool)
			defer pool.Close()

			if err := d.AddWorker(pool, config.ThreadCount); err != nil {
				log.Fatal(err)
			}
		}

		handler := handshake.NewConnectionHandler(d, library, []byte(config.Secret))
		handler.Timeout = config.HandshakeTimeout

		g, gctx := errgroup.WithContext(ctx)

		// Start listening for protocol connections on all configured addresses
		for _, uri := range config.Listen {
			g.Go(func() error {
				return serveProtocol(gctx, handler, uri)
			})
		}

		// Start listening for gRPC connections on all configured addresses
		for _, uri := range config.ListenGrpc {
			g.Go(func() error {
				return serveGrpc(gctx, d, uri)
			})
		}

		// Start listening for HTTP connections on all configured addresses
		for _, uri := range config.ListenHttp {
			g.Go(func() error {
				return serveHttp(gctx, d, handler, uri)
			})
		}

		// Ready to run the dispatcher
		g.Go(func() error {
			d.Run(gctx)
			return nil
		})

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			log.Fatal(err)
		}
		log.Info("Dispatcher terminated")
	},
}

var subtaskCmd = &cobra.Command{
	Use:              "subtask",
	Short:            "Worker subprocess, started by the dispatcher",
	Hidden:           true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		if err := worker.RunSubtask(task.NewRegistry()); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.Flags().StringSliceP("listen", "l", []string{"tcp://:12456"}, "Addresses to listen on for protocol connections")
	rootCmd.Flags().StringSliceP("listen-http", "w", []string{}, "Addresses to listen on for HTTP connections")
	rootCmd.Flags().StringSliceP("listen-grpc", "g", []string{"tcp://:9090"}, "Addresses to listen on for gRPC connections")
	rootCmd.Flags().StringP("secret", "s", "", "Shared secret of workers and clients")
	rootCmd.Flags().IntP("threads", "j", 0, "Number of tasks to execute locally")
	rootCmd.Flags().String("max-payload", "1GiB", "Largest accepted protocol message")
	rootCmd.Flags().String("library-storage", "memory", "Configuration storage: memory, disk or s3")
	rootCmd.Flags().String("library-path", "", "Configuration storage directory (disk)")
	rootCmd.Flags().String("library-cache-size", "0", "Bytes of configurations cached in memory (disk, s3)")
	rootCmd.Flags().String("library-s3-endpoint", "", "Object store endpoint (s3)")
	rootCmd.Flags().String("library-s3-bucket", "", "Object store bucket (s3)")
	rootCmd.Flags().String("log-file", "", "Additional rotated log file")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("listen", rootCmd.Flags().Lookup("listen"))
	viper.BindPFlag("listen_grpc", rootCmd.Flags().Lookup("listen-grpc"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("secret", rootCmd.Flags().Lookup("secret"))
	viper.BindPFlag("threads", rootCmd.Flags().Lookup("threads"))
	viper.BindPFlag("max_payload", rootCmd.Flags().Lookup("max-payload"))
	viper.BindPFlag("library.storage", rootCmd.Flags().Lookup("library-storage"))
	viper.BindPFlag("library.path", rootCmd.Flags().Lookup("library-path"))
	viper.BindPFlag("library.cache_size", rootCmd.Flags().Lookup("library-cache-size"))
	viper.BindPFlag("library.s3.endpoint", rootCmd.Flags().Lookup("library-s3-endpoint"))
	viper.BindPFlag("library.s3.bucket", rootCmd.Flags().Lookup("library-s3-bucket"))
	viper.BindPFlag("log.file", rootCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(subtaskCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
