package model

// PoolState is the shared liquidity record for one trading pair.
type PoolState struct {
	ID              ID     `json:"id"`
	FeeRate         uint64 `json:"fee_rate"`
	Liquidity       uint64 `json:"liquidity"`
	StakedLiquidity uint64 `json:"staked_liquidity"`
	AssetA          ID     `json:"asset_a"`
	AssetB          ID     `json:"asset_b"`
}
