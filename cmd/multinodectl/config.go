package main

import (
	"github.com/spf13/viper"
	"github.com/srand/multinode/pkg/utils"
)

type ControlConfig struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// Protocol URI of the dispatcher, used to run tasks.
	DispatcherUri string `mapstructure:"dispatcher_uri"`

	// gRPC URI of the dispatcher, used for administration.
	GrpcUri string `mapstructure:"grpc_uri"`

	// Shared secret of the dispatcher.
	Secret string `mapstructure:"secret"`
}

func ParseConfig() (*ControlConfig, error) {
	config := &ControlConfig{}
	if err := utils.UnmarshalConfig(viper.GetViper(), config); err != nil {
		return nil, err
	}
	return config, nil
}
