// version.go: Build identification.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

// version is overridden at link time with
// -ldflags "-X github.com/agilira/themis.version=...".
var version = "themis 1.0.0"

// Version returns the static build identifier of the library.
func Version() string { return version }
