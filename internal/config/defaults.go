// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/spf13/viper"

// Default addresses of a local deployment.
const (
	DefaultEngineAddress     = "0x0000000000000000000000000000000000009030"
	DefaultTransmuterAddress = "0x0000000000000000000000000000000000009031"
	DefaultAdminAddress      = "0x00000000000000000000000000000000000000a0"
	DefaultDebtTokenAddress  = "0x00000000000000000000000000000000000000d0"
)

// setDefaults sets the engine defaults. Tokens, accounts and steps have none.
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.address", DefaultEngineAddress)
	v.SetDefault("engine.admin", DefaultAdminAddress)
	v.SetDefault("engine.debt_token", DefaultDebtTokenAddress)
	v.SetDefault("engine.transmuter", DefaultTransmuterAddress)
	v.SetDefault("engine.protocol_fee_receiver", "")
	v.SetDefault("engine.minimum_collateralization", "2")
	v.SetDefault("engine.minting_limit", "1000000")
	v.SetDefault("engine.minting_limit_blocks", 7200)
	v.SetDefault("engine.liquidation_penalty_bps", 500)
	v.SetDefault("engine.start_block", 1)
}
