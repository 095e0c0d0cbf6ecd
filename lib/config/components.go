// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/truthqr/lib/assembly"
	"github.com/bureau-foundation/truthqr/lib/chunkstore"
	"github.com/bureau-foundation/truthqr/lib/envelope"
	"github.com/bureau-foundation/truthqr/lib/publish"
	"github.com/bureau-foundation/truthqr/lib/serializer"
	"github.com/bureau-foundation/truthqr/lib/transport"
)

// NewEnvelope builds the configured envelope. When AcceptPrefixes is
// set the result parses every listed kind and still emits Prefix.
func (c *Config) NewEnvelope() (envelope.Envelope, error) {
	switch c.Envelope.Kind {
	case EnvelopeLine:
		primary := envelope.NewLine(c.Envelope.Prefix, c.Envelope.Version)
		if len(c.Envelope.AcceptPrefixes) == 0 {
			return primary, nil
		}
		others := make([]envelope.Envelope, 0, len(c.Envelope.AcceptPrefixes))
		for _, prefix := range c.Envelope.AcceptPrefixes {
			others = append(others, primary.WithPrefix(prefix))
		}
		return envelope.NewMulti(primary, others...), nil

	case EnvelopeURL:
		primary := envelope.NewURL(envelope.URLConfig{
			Prefix:       c.Envelope.Prefix,
			Version:      c.Envelope.Version,
			Scheme:       c.Envelope.Scheme,
			WebBase:      c.Envelope.WebBase,
			PayloadParam: c.Envelope.PayloadParam,
			VersionParam: c.Envelope.VersionParam,
		})
		if len(c.Envelope.AcceptPrefixes) == 0 {
			return primary, nil
		}
		others := make([]envelope.Envelope, 0, len(c.Envelope.AcceptPrefixes))
		for _, prefix := range c.Envelope.AcceptPrefixes {
			others = append(others, primary.WithPrefix(prefix))
		}
		return envelope.NewMulti(primary, others...), nil

	default:
		return nil, fmt.Errorf("config: unknown envelope kind %q", c.Envelope.Kind)
	}
}

// NewSerializer returns the configured serializer.
func (c *Config) NewSerializer() (serializer.Serializer, error) {
	return serializer.ByName(c.Serializer.Name)
}

// NewTransport returns the configured transport codec.
func (c *Config) NewTransport() (transport.Codec, error) {
	return transport.ByName(c.Transport.Name)
}

// PublishOptions returns the splitting options of the chunking
// section.
func (c *Config) PublishOptions() (publish.Options, error) {
	strategy, err := publish.ParseStrategy(c.Chunking.Strategy)
	if err != nil {
		return publish.Options{}, err
	}
	return publish.Options{
		By:     strategy,
		Count:  c.Chunking.Count,
		MaxLen: c.Chunking.Size,
	}, nil
}

// OpenStore opens the configured chunk store. ctx bounds the
// connection attempt of the redis backend. The caller must Close the
// returned store.
func (c *Config) OpenStore(ctx context.Context, logger *slog.Logger) (chunkstore.ClosableStore, error) {
	switch c.Store.Backend {
	case BackendMemory:
		return chunkstore.NewMemory(), nil

	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return nil, fmt.Errorf("config: store.sqlite_path is required for the sqlite backend")
		}
		store, err := chunkstore.OpenSQLite(chunkstore.SQLiteConfig{
			Path:       c.Store.SQLitePath,
			DefaultTTL: c.Store.TTL(),
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case BackendRedis:
		store, err := chunkstore.DialRedis(ctx, c.Store.RedisAddr, chunkstore.RedisConfig{
			Namespace:  c.Store.RedisNamespace,
			DefaultTTL: c.Store.TTL(),
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
}

// NewLogger returns a text logger writing to w at the configured
// level.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// NewPublisher builds a Publisher from the envelope, serializer and
// transport sections.
func (c *Config) NewPublisher() (*publish.Publisher, error) {
	env, ser, codec, err := c.codecs()
	if err != nil {
		return nil, err
	}
	return publish.New(publish.Config{
		Serializer: ser,
		Transport:  codec,
		Envelope:   env,
	}), nil
}

// NewAssembler builds an Assembler over store.
func (c *Config) NewAssembler(store chunkstore.Store, logger *slog.Logger) (*assembly.Assembler, error) {
	env, ser, codec, err := c.codecs()
	if err != nil {
		return nil, err
	}
	return assembly.New(assembly.Config{
		Envelope:   env,
		Transport:  codec,
		Serializer: ser,
		Store:      store,
		Logger:     logger,
	}), nil
}

func (c *Config) codecs() (envelope.Envelope, serializer.Serializer, transport.Codec, error) {
	env, err := c.NewEnvelope()
	if err != nil {
		return nil, nil, nil, err
	}
	ser, err := c.NewSerializer()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	codec, err := c.NewTransport()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	return env, ser, codec, nil
}
