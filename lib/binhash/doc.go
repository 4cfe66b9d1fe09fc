// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides SHA256 content hashing for generated
// configuration files.
//
// The ACL and bridge emitters compare the digest of the document they
// are about to write against the digest of the file already on disk,
// and skip the write when the two match. Re-running a generation on
// unchanged input therefore leaves file timestamps alone, which keeps
// downstream file watchers (zenoh routers reloading their config)
// quiet.
//
// This package has no dependencies on other zenohsec packages.
package binhash
