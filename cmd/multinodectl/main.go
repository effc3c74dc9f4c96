package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/multinode/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "multinodectl",
	Short: "Multinode control command",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetConfigName("multinodectl.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/multinode/")
		viper.AddConfigPath("$HOME/.config/multinode")
		viper.AddConfigPath(".")
		viper.ReadInConfig()

		viper.SetEnvPrefix("multinode")
		viper.AutomaticEnv()

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			log.Fatal(err)
		}
		if verbosity >= 1 {
			log.SetLevel(log.DebugLevel)
		}

		config, err := ParseConfig()
		if err != nil {
			log.Fatal(err)
		}
		configData = *config
	},
}

var configData = ControlConfig{}

func main() {
	rootCmd.PersistentFlags().StringP("dispatcher-uri", "s", "tcp://dispatcher:12456", "Dispatcher protocol URI")
	rootCmd.PersistentFlags().StringP("grpc-uri", "g", "tcp://dispatcher:9090", "Dispatcher gRPC URI")
	rootCmd.PersistentFlags().String("secret", "", "Shared secret of the dispatcher")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity")
	viper.BindPFlag("dispatcher_uri", rootCmd.PersistentFlags().Lookup("dispatcher-uri"))
	viper.BindPFlag("grpc_uri", rootCmd.PersistentFlags().Lookup("grpc-uri"))
	viper.BindPFlag("secret", rootCmd.PersistentFlags().Lookup("secret"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
