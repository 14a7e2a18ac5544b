// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the set of precompiles known to this binary and the
// address ranges they may be deployed at.
package modules

import (
	"bytes"
	"errors"

	"github.com/luxfi/geth/common"
)

var ErrAddressUnavailable = errors.New("precompile address unavailable")

// Contract is the part of a precompile the registry needs.
type Contract interface {
	RequiredGas(input []byte) uint64
}

// Module is a registered precompile.
type Module struct {
	// ConfigKey is the key of the precompile in config files.
	ConfigKey string
	// Address is the default deployment address.
	Address  common.Address
	Contract Contract
}

type moduleArray []Module

func (u moduleArray) Len() int { return len(u) }

func (u moduleArray) Swap(i, j int) { u[i], u[j] = u[j], u[i] }

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
