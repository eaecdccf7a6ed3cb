package domain

import "fmt"

// Asset identifies one tracked instrument. The universe is closed; per-asset
// state everywhere in the pipeline is keyed by it.
type Asset string

const (
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
	AssetSOL  Asset = "SOL"
	AssetXRP  Asset = "XRP"
	AssetDOGE Asset = "DOGE"
	AssetMNT  Asset = "MNT"
)

// AllAssets returns the closed asset universe in canonical order.
func AllAssets() []Asset {
	return []Asset{AssetBTC, AssetETH, AssetSOL, AssetXRP, AssetDOGE, AssetMNT}
}

// ParseAsset validates a symbol against the closed universe.
func ParseAsset(s string) (Asset, error) {
	for _, a := range AllAssets() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown asset %q", s)
}
