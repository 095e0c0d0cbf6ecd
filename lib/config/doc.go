// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads truthqr configuration and builds the
// components it describes.
//
// Configuration is loaded from a single file specified by either the
// TRUTHQR_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no environment override
// of individual keys. Files ending in .toml are parsed as TOML; every
// other file is parsed as YAML. Keys missing from the file keep the
// values from [Default].
//
// Path-like fields (store.sqlite_path, store.redis_addr) expand
// ${VAR} and ${VAR:-default} after loading.
//
// The constructors turn a validated Config into working parts:
// [Config.NewEnvelope], [Config.NewSerializer], [Config.NewTransport],
// [Config.PublishOptions], [Config.OpenStore], [Config.NewLogger],
// and the two composites [Config.NewPublisher] and
// [Config.NewAssembler].
package config
