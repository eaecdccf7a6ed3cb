package integrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/derivscope/derivscope/internal/domain"
)

// Integrator collects one value per registered indicator source and seals
// them into an immutable Snapshot. It never fails: a source whose lookup
// errors, times out, or panics contributes an absent slot with a reason, so
// one bad source cannot poison the whole observation.
type Integrator struct {
	store         Store
	lookupTimeout time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// Option tweaks integrator construction.
type Option func(*Integrator)

// WithLookupTimeout overrides the per-source lookup timeout (default 10s).
func WithLookupTimeout(d time.Duration) Option {
	return func(in *Integrator) { in.lookupTimeout = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(in *Integrator) { in.now = now }
}

// New builds an integrator over the given snapshot store.
func New(store Store, log zerolog.Logger, opts ...Option) *Integrator {
	in := &Integrator{
		store:         store,
		lookupTimeout: 10 * time.Second,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Integrate builds the snapshot for one asset. The dispatch over indicator
// kinds is exhaustive by construction: adding a kind without a case here is
// a compile-time-visible gap in lookupInto.
func (in *Integrator) Integrate(ctx context.Context, asset domain.Asset) *domain.Snapshot {
	snap := &domain.Snapshot{
		Asset:       asset,
		CollectedAt: in.now().UTC(),
	}

	absent := make(map[domain.IndicatorKind]string)
	for _, kind := range domain.AllIndicatorKinds() {
		if reason := in.lookupInto(ctx, kind, asset, snap); reason != "" {
			absent[kind] = reason
			in.log.Warn().
				Str("asset", string(asset)).
				Str("indicator", string(kind)).
				Str("reason", reason).
				Msg("indicator source absent")
		}
	}

	snap.Seal(absent)
	return snap
}

// lookupInto runs one time-boxed, failure-isolated lookup and stores the
// result on the snapshot. It returns "" on success or the absence reason.
func (in *Integrator) lookupInto(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset, snap *domain.Snapshot) (reason string) {
	ctx, cancel := context.WithTimeout(ctx, in.lookupTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprintf("lookup panicked: %v", r)
		}
	}()

	var err error
	present := false
	switch kind {
	case domain.KindFutures:
		var v *domain.FuturesValue
		if v, err = in.store.Futures(ctx, asset); v != nil {
			snap.Futures, present = v, true
		}
	case domain.KindLiquidations:
		var v *domain.LiquidationsValue
		if v, err = in.store.Liquidations(ctx, asset); v != nil {
			snap.Liquidations, present = v, true
		}
	case domain.KindPCR:
		var v *domain.PCRValue
		if v, err = in.store.PCR(ctx, asset); v != nil {
			snap.PCR, present = v, true
		}
	case domain.KindMaxPain:
		var v *domain.MaxPainValue
		if v, err = in.store.MaxPain(ctx, asset); v != nil {
			snap.MaxPain, present = v, true
		}
	case domain.KindGEX:
		var v *domain.GEXValue
		if v, err = in.store.GEX(ctx, asset); v != nil {
			snap.GEX, present = v, true
		}
	case domain.KindVanna:
		var v *domain.VannaValue
		if v, err = in.store.Vanna(ctx, asset); v != nil {
			snap.Vanna, present = v, true
		}
	case domain.KindIVRank:
		var v *domain.IVRankValue
		if v, err = in.store.IVRank(ctx, asset); v != nil {
			snap.IVRank, present = v, true
		}
	case domain.KindOptionVWAP:
		var v *domain.OptionVWAPValue
		if v, err = in.store.OptionVWAP(ctx, asset); v != nil {
			snap.OptionVWAP, present = v, true
		}
	case domain.KindOIDynamics:
		var v *domain.OIDynamicsValue
		if v, err = in.store.OIDynamics(ctx, asset); v != nil {
			snap.OIDynamics, present = v, true
		}
	case domain.KindExpirationWalls:
		var v *domain.ExpirationWallsValue
		if v, err = in.store.ExpirationWalls(ctx, asset); v != nil {
			snap.ExpirationWalls, present = v, true
		}
	default:
		return fmt.Sprintf("unregistered indicator kind %q", kind)
	}

	switch {
	case err != nil:
		return fmt.Sprintf("lookup failed: %v", err)
	case !present:
		return "no data"
	default:
		return ""
	}
}
