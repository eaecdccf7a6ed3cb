package integrator

import (
	"context"

	"github.com/derivscope/derivscope/internal/domain"
)

// Store is the capability object over the per-indicator latest-value lookups.
// Every method follows the same contract: (value, nil) when the source has
// data, (nil, nil) when the store is simply empty for the asset, and
// (nil, err) when the lookup failed or the stored document is malformed.
// The integrator treats the last two identically except for the recorded
// reason.
type Store interface {
	Futures(ctx context.Context, asset domain.Asset) (*domain.FuturesValue, error)
	Liquidations(ctx context.Context, asset domain.Asset) (*domain.LiquidationsValue, error)
	PCR(ctx context.Context, asset domain.Asset) (*domain.PCRValue, error)
	MaxPain(ctx context.Context, asset domain.Asset) (*domain.MaxPainValue, error)
	GEX(ctx context.Context, asset domain.Asset) (*domain.GEXValue, error)
	Vanna(ctx context.Context, asset domain.Asset) (*domain.VannaValue, error)
	IVRank(ctx context.Context, asset domain.Asset) (*domain.IVRankValue, error)
	OptionVWAP(ctx context.Context, asset domain.Asset) (*domain.OptionVWAPValue, error)
	OIDynamics(ctx context.Context, asset domain.Asset) (*domain.OIDynamicsValue, error)
	ExpirationWalls(ctx context.Context, asset domain.Asset) (*domain.ExpirationWallsValue, error)
}
