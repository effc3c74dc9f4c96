package utils

import (
	"fmt"
	"net"
	"net/url"
)

const (
	DefaultProtocolPort = "12456"
	DefaultHttpPort     = "8080"
	DefaultGrpcPort     = "9090"
)

// A parsed service address.
type Endpoint struct {
	// Scheme of the URI: tcp, tcp4, tcp6, unix or http.
	Scheme string
	// Network argument for net.Dial/net.Listen.
	Network string
	// Address argument for net.Dial/net.Listen.
	Address string
}

// Parses a string of the form <scheme>://<host>:<port> or unix://<path>.
// If the port is not specified, defaultPort is used.
func ParseEndpoint(urlstr, defaultPort string) (*Endpoint, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	host := uri.Host
	if uri.Port() == "" && uri.Scheme != "unix" {
		host = net.JoinHostPort(uri.Hostname(), defaultPort)
	}

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		return &Endpoint{Scheme: uri.Scheme, Network: uri.Scheme, Address: host}, nil
	case "http":
		return &Endpoint{Scheme: uri.Scheme, Network: "tcp", Address: host}, nil
	case "unix":
		if uri.Path == "" {
			return nil, fmt.Errorf("%w: unix socket path missing: %s", ErrParse, urlstr)
		}
		return &Endpoint{Scheme: uri.Scheme, Network: "unix", Address: uri.Path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported protocol: %s", ErrParse, uri.Scheme)
	}
}

// Parses a HTTP listen address. The scheme must be "tcp".
// If the port is not specified, it defaults to 8080.
func ParseHttpUrl(urlstr string) (string, error) {
	endpoint, err := ParseEndpoint(urlstr, DefaultHttpPort)
	if err != nil {
		return "", err
	}
	if endpoint.Scheme != "tcp" {
		return "", fmt.Errorf("%w: unsupported protocol: %s", ErrParse, endpoint.Scheme)
	}
	return endpoint.Address, nil
}

// Parses a gRPC address. The scheme must be "tcp".
// If the port is not specified, it defaults to 9090.
func ParseGrpcUrl(urlstr string) (string, error) {
	endpoint, err := ParseEndpoint(urlstr, DefaultGrpcPort)
	if err != nil {
		return "", err
	}
	if endpoint.Scheme != "tcp" {
		return "", fmt.Errorf("%w: unsupported protocol: %s", ErrParse, endpoint.Scheme)
	}
	return endpoint.Address, nil
}
