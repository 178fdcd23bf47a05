// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", \"error\", or \"disabled\")")

	// ErrInvalidPolicy indicates the authorization policy is not recognized.
	ErrInvalidPolicy = errors.New("config: invalid policy (must be \"open\" or \"owner-or-admin\")")

	// ErrInvalidIPFSAddr indicates the IPFS API address is malformed.
	ErrInvalidIPFSAddr = errors.New("config: invalid IPFS API address")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfig indicates the configuration file is not valid TOML.
	ErrInvalidConfig = errors.New("config: invalid configuration file")
)
