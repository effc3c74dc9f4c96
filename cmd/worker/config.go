package main

import (
	"github.com/spf13/viper"
	"github.com/srand/multinode/pkg/utils"
	"github.com/srand/multinode/pkg/worker"
)

func LoadConfig() (*worker.WorkerConfig, error) {
	config := &worker.WorkerConfig{}

	err := utils.UnmarshalConfig(viper.GetViper(), config)
	if err != nil {
		return nil, err
	}

	config.SetDefaults()
	return config, nil
}
