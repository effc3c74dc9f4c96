package main

import (
	"errors"
	"time"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/handshake"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/utils"
	"github.com/srand/multinode/pkg/worker"
)

type Config struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// Addresses to listen on for protocol connections.
	Listen []string `mapstructure:"listen"`
	// Addresses to listen on for gRPC.
	ListenGrpc []string `mapstructure:"listen_grpc"`
	// Addresses to listen on for HTTP.
	ListenHttp []string `mapstructure:"listen_http"`
	// Shared secret of workers and clients.
	Secret string `mapstructure:"secret"`
	// Number of tasks executed by the dispatcher itself. Zero disables local execution.
	ThreadCount int `mapstructure:"threads"`
	// Largest accepted protocol message.
	MaxPayload int64 `mapstructure:"max_payload"`
	// Upper bound of the authentication of new connections.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	// Configuration library.
	Library configuration.LibraryConfig `mapstructure:"library"`
	// Local subprocess pool.
	Pool worker.PoolConfig `mapstructure:"pool"`
	// Log file.
	LogFile log.LogConfig `mapstructure:"log"`
}

func (c *Config) SetDefaults() {
	if c.MaxPayload <= 0 {
		c.MaxPayload = protocol.DefaultMaxPayload
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = handshake.DefaultTimeout
	}
	if c.Pool.IdleProcesses <= 0 {
		c.Pool.IdleProcesses = c.ThreadCount
	}
	c.Pool.SetDefaults()
	c.Library.SetDefaults()
}

func (c *Config) Validate() error {
	if len(c.Listen) > 0 || len(c.ListenHttp) > 0 {
		if c.Secret == "" {
			return errors.New("A secret is required")
		}
	}
	if c.ThreadCount < 0 {
		return errors.New("The thread count must not be negative")
	}
	return nil
}

func (c *Config) Log() {
	log.Info("Dispatcher configuration:")
	log.Infof("  Protocol listen addresses: %v", c.Listen)
	log.Infof("  gRPC listen addresses: %v", c.ListenGrpc)
	log.Infof("  HTTP listen addresses: %v", c.ListenHttp)
	log.Infof("  Local threads: %d", c.ThreadCount)
	log.Infof("  Max payload: %s", utils.HumanByteSize(c.MaxPayload))
	log.Infof("  Handshake timeout: %v", c.HandshakeTimeout)
	c.Library.Log()
	if c.ThreadCount > 0 {
		c.Pool.Log()
	}
	c.GRPCOptions.Log()
}
