package config

// MainnetConfig returns the configuration for the production ledger.
func MainnetConfig() Config {
	conf := DefaultConfig()
	conf.Gateway.NodeURL = "https://rpc.mainnet.near.org"
	conf.Gateway.ContractID = "meta-vote.near"
	conf.Gateway.TokenID = "meta-token.near"
	return conf
}

// TestnetConfig returns the configuration for the test ledger.
func TestnetConfig() Config {
	conf := DefaultConfig()
	conf.Gateway.NodeURL = "https://rpc.testnet.near.org"
	conf.Gateway.ContractID = "metavote.testnet"
	conf.Gateway.TokenID = "token.meta.testnet"
	return conf
}

// Presets maps preset names to configurations selectable with --preset.
func Presets() map[string]Config {
	return map[string]Config{
		"mainnet": MainnetConfig(),
		"testnet": TestnetConfig(),
	}
}
