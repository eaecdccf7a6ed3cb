package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/derivscope/derivscope/internal/domain"
	"github.com/derivscope/derivscope/internal/integrator"
)

// Typed adapts a raw document source to the integrator's typed ports. A
// document that fails to unmarshal into its kind's shape is a malformed
// source and surfaces as a lookup failure.
type Typed struct {
	src DocSource
}

// NewTyped builds the typed adapter. It is the integrator.Store the rest of
// the pipeline consumes.
func NewTyped(src DocSource) *Typed {
	return &Typed{src: src}
}

var _ integrator.Store = (*Typed)(nil)

// fetchInto unmarshals the raw document into v, reporting whether a
// document existed at all.
func (t *Typed) fetchInto(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset, v any) (bool, error) {
	b, err := t.src.Fetch(ctx, kind, asset)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("malformed %s document for %s: %w", kind, asset, err)
	}
	return true, nil
}

func (t *Typed) Futures(ctx context.Context, asset domain.Asset) (*domain.FuturesValue, error) {
	var v domain.FuturesValue
	ok, err := t.fetchInto(ctx, domain.KindFutures, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) Liquidations(ctx context.Context, asset domain.Asset) (*domain.LiquidationsValue, error) {
	var v domain.LiquidationsValue
	ok, err := t.fetchInto(ctx, domain.KindLiquidations, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) PCR(ctx context.Context, asset domain.Asset) (*domain.PCRValue, error) {
	var v domain.PCRValue
	ok, err := t.fetchInto(ctx, domain.KindPCR, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) MaxPain(ctx context.Context, asset domain.Asset) (*domain.MaxPainValue, error) {
	var v domain.MaxPainValue
	ok, err := t.fetchInto(ctx, domain.KindMaxPain, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) GEX(ctx context.Context, asset domain.Asset) (*domain.GEXValue, error) {
	var v domain.GEXValue
	ok, err := t.fetchInto(ctx, domain.KindGEX, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) Vanna(ctx context.Context, asset domain.Asset) (*domain.VannaValue, error) {
	var v domain.VannaValue
	ok, err := t.fetchInto(ctx, domain.KindVanna, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) IVRank(ctx context.Context, asset domain.Asset) (*domain.IVRankValue, error) {
	var v domain.IVRankValue
	ok, err := t.fetchInto(ctx, domain.KindIVRank, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) OptionVWAP(ctx context.Context, asset domain.Asset) (*domain.OptionVWAPValue, error) {
	var v domain.OptionVWAPValue
	ok, err := t.fetchInto(ctx, domain.KindOptionVWAP, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) OIDynamics(ctx context.Context, asset domain.Asset) (*domain.OIDynamicsValue, error) {
	var v domain.OIDynamicsValue
	ok, err := t.fetchInto(ctx, domain.KindOIDynamics, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Typed) ExpirationWalls(ctx context.Context, asset domain.Asset) (*domain.ExpirationWallsValue, error) {
	var v domain.ExpirationWallsValue
	ok, err := t.fetchInto(ctx, domain.KindExpirationWalls, asset, &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}
