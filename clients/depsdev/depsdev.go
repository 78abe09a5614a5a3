// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package depsdev provides a gRPC client for the deps.dev API.
package depsdev

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	pb "deps.dev/api/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

const (
	// DefaultAddress is the public deps.dev endpoint.
	DefaultAddress = "api.deps.dev:443"
)

var (
	// ErrMalformedConfig is returned when the config is malformed.
	ErrMalformedConfig = errors.New("malformed config")
)

// Config is the configuration for the deps.dev client.
type Config struct {
	Address   string
	UserAgent string
}

// DefaultConfig returns the default configuration for the deps.dev client.
func DefaultConfig() *Config {
	return &Config{
		Address: DefaultAddress,
	}
}

// Client is the part of the deps.dev Insights API used for hash lookups.
type Client interface {
	Query(ctx context.Context, in *pb.QueryRequest, opts ...grpc.CallOption) (*pb.QueryResult, error)
}

// GRPCClient is a Client backed by a gRPC connection.
type GRPCClient struct {
	pb.InsightsClient

	conn *grpc.ClientConn
}

// New returns a new deps.dev client. The connection is established lazily on
// the first call.
func New(cfg *Config) (*GRPCClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil: %w", ErrMalformedConfig)
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("address is empty: %w", ErrMalformedConfig)
	}

	certPool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("getting system cert pool: %w", err)
	}
	creds := credentials.NewClientTLSFromCert(certPool, "")
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.UserAgent != "" {
		dialOpts = append(dialOpts, grpc.WithUserAgent(cfg.UserAgent))
	}

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dialling %q: %w", cfg.Address, err)
	}
	return &GRPCClient{InsightsClient: pb.NewInsightsClient(conn), conn: conn}, nil
}

// Close closes the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
