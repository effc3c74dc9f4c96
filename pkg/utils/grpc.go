package utils

import (
	"time"

	"github.com/srand/multinode/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

type GRPCOptions struct {
	// The interval between PING frames.
	KeepAliveTime *time.Duration `mapstructure:"keep_alive_time"`
	// The timeout for a PING frame to be acknowledged.
	KeepAliveTimeout *time.Duration `mapstructure:"keep_alive_timeout"`
	// Send keepalive pings even if there are no active streams (client).
	KeepAliveWithoutCalls *bool `mapstructure:"keep_alive_without_calls"`
	// Minimum allowed time between a server receiving successive ping frames.
	PermitKeepAliveTime *time.Duration `mapstructure:"permit_keep_alive_time"`
}

func (o *GRPCOptions) ToServerOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil {
		params := keepalive.ServerParameters{}
		if o.KeepAliveTime != nil {
			params.Time = *o.KeepAliveTime
		}
		if o.KeepAliveTimeout != nil {
			params.Timeout = *o.KeepAliveTimeout
		}
		opts = append(opts, grpc.KeepaliveParams(params))
	}

	if o.PermitKeepAliveTime != nil {
		opts = append(opts, grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             *o.PermitKeepAliveTime,
			PermitWithoutStream: true,
		}))
	}

	return opts
}

// Dial options for the administration client.
// The administration service is unauthenticated and plaintext.
func (o *GRPCOptions) ToDialOptions() []grpc.DialOption {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	if o.KeepAliveTime != nil || o.KeepAliveTimeout != nil || o.KeepAliveWithoutCalls != nil {
		params := keepalive.ClientParameters{}
		if o.KeepAliveTime != nil {
			params.Time = *o.KeepAliveTime
		}
		if o.KeepAliveTimeout != nil {
			params.Timeout = *o.KeepAliveTimeout
		}
		if o.KeepAliveWithoutCalls != nil {
			params.PermitWithoutStream = *o.KeepAliveWithoutCalls
		}
		opts = append(opts, grpc.WithKeepaliveParams(params))
	}

	return opts
}

func (o *GRPCOptions) Log() {
	if o.KeepAliveTime == nil && o.KeepAliveTimeout == nil &&
		o.KeepAliveWithoutCalls == nil && o.PermitKeepAliveTime == nil {
		return
	}

	log.Info("  gRPC options:")

	if o.KeepAliveTime != nil {
		log.Info("    keep_alive_time =", *o.KeepAliveTime)
	}
	if o.KeepAliveTimeout != nil {
		log.Info("    keep_alive_timeout =", *o.KeepAliveTimeout)
	}
	if o.KeepAliveWithoutCalls != nil {
		log.Info("    keep_alive_without_calls =", *o.KeepAliveWithoutCalls)
	}
	if o.PermitKeepAliveTime != nil {
		log.Info("    permit_keep_alive_time =", *o.PermitKeepAliveTime)
	}
}
