// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/exposure"
)

// RewardF1 is the part of the reporter reward paid on the first slash in a
// span.
var RewardF1 = perthing.PerbillFromPercent(50)

// Params describes one offence of a validator.
type Params struct {
	Stash            npos.Address
	Fraction         perthing.Perbill
	Exposure         *exposure.Exposure
	SlashEra         npos.EraIndex
	WindowStart      npos.EraIndex
	Now              npos.EraIndex
	RewardProportion perthing.Perbill
}

// Outcome is the result of ComputeSlash.
type Outcome struct {
	// Slash is nil when the offence is not a new maximum for the era.
	Slash *UnappliedSlash
	// EndedSpan is set when the offence fell in the ongoing span of the
	// validator, which got closed.
	EndedSpan bool
	// Kicked is set for a zero slash in the ongoing span.
	Kicked bool
}

// ComputeSlash records the offence against the span and era maxima of the
// validator and its nominators and returns the marginal amounts to take.
func (r *Repository) ComputeSlash(p Params) (Outcome, error) {
	var out Outcome
	if p.Fraction.Mul(p.Exposure.Total) == 0 {
		kicked, err := r.kickOutIfRecent(p)
		out.Kicked = kicked
		return out, err
	}

	ownSlash := p.Fraction.Mul(p.Exposure.Own)
	key := npos.EraAddressKey{Era: p.SlashEra, Account: p.Stash}
	prior, _, err := r.validatorSlash.Get(key)
	if err != nil {
		return out, errors.Wrap(err, "failed to get validator slash")
	}
	var priorFraction perthing.Perbill
	if prior != nil {
		priorFraction = prior.Fraction
	}
	// only the maximum slash in an era counts
	if p.Fraction <= priorFraction {
		return out, nil
	}
	if err := r.validatorSlash.Set(key, &ValidatorSlash{Fraction: p.Fraction, Amount: ownSlash}); err != nil {
		return out, errors.Wrap(err, "failed to set validator slash")
	}

	var payout, validatorSlashed npos.Balance
	spans, err := r.inspect(p.Stash, p.WindowStart, &payout, &validatorSlashed, p.RewardProportion)
	if err != nil {
		return out, err
	}
	index, ok, err := spans.compareAndUpdate(p.SlashEra, ownSlash)
	if err != nil {
		return out, err
	}
	if ok && index == spans.spans.SpanIndex {
		spans.endSpan(p.Now)
		out.EndedSpan = true
	}
	if err := spans.close(); err != nil {
		return out, err
	}

	others, err := r.slashNominators(p, priorFraction, &payout)
	if err != nil {
		return out, err
	}
	out.Slash = &UnappliedSlash{
		Validator: p.Stash,
		Own:       validatorSlashed,
		Others:    others,
		Payout:    payout,
	}
	return out, nil
}

func (r *Repository) kickOutIfRecent(p Params) (bool, error) {
	var payout, slashed npos.Balance
	spans, err := r.inspect(p.Stash, p.WindowStart, &payout, &slashed, p.RewardProportion)
	if err != nil {
		return false, err
	}
	kicked := false
	if span, ok := spans.spans.EraSpan(p.SlashEra); ok && span.Index == spans.spans.SpanIndex {
		spans.endSpan(p.Now)
		kicked = true
	}
	return kicked, spans.close()
}

func (r *Repository) slashNominators(p Params, priorFraction perthing.Perbill, payout *npos.Balance) ([]exposure.Individual, error) {
	slashed := make([]exposure.Individual, 0, len(p.Exposure.Others))
	for _, nominator := range p.Exposure.Others {
		byValidator := p.Fraction.Mul(nominator.Value)
		priorOwn := priorFraction.Mul(nominator.Value)

		key := npos.EraAddressKey{Era: p.SlashEra, Account: nominator.Who}
		eraSlash, _, err := r.nominatorSlash.Get(key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get nominator slash")
		}
		// the era slash of a nominator only grows with a new validator maximum
		eraSlash += byValidator - min(priorOwn, byValidator)
		if err := r.nominatorSlash.Set(key, eraSlash); err != nil {
			return nil, errors.Wrap(err, "failed to set nominator slash")
		}

		var nominatorSlashed npos.Balance
		spans, err := r.inspect(nominator.Who, p.WindowStart, payout, &nominatorSlashed, p.RewardProportion)
		if err != nil {
			return nil, err
		}
		index, ok, err := spans.compareAndUpdate(p.SlashEra, eraSlash)
		if err != nil {
			return nil, err
		}
		if ok && index == spans.spans.SpanIndex {
			spans.endSpan(p.Now)
		}
		if err := spans.close(); err != nil {
			return nil, err
		}
		slashed = append(slashed, exposure.Individual{Who: nominator.Who, Value: nominatorSlashed})
	}
	return slashed, nil
}

// inspector is a working copy of the spans of one stash. Updates to the span
// records are written through; the spans themselves on close.
type inspector struct {
	repo             *Repository
	stash            npos.Address
	spans            *Spans
	windowStart      npos.EraIndex
	paidOut          *npos.Balance
	slashOf          *npos.Balance
	rewardProportion perthing.Perbill
	dirty            bool
}

func (r *Repository) inspect(stash npos.Address, windowStart npos.EraIndex, paidOut, slashOf *npos.Balance, rewardProportion perthing.Perbill) (*inspector, error) {
	spans, err := r.Spans(stash)
	if err != nil {
		return nil, err
	}
	if spans == nil {
		spans = NewSpans(windowStart)
		if err := r.spans.Set(stash, spans); err != nil {
			return nil, errors.Wrap(err, "failed to set slashing spans")
		}
	}
	return &inspector{
		repo:             r,
		stash:            stash,
		spans:            spans,
		windowStart:      windowStart,
		paidOut:          paidOut,
		slashOf:          slashOf,
		rewardProportion: rewardProportion,
	}, nil
}

func (i *inspector) endSpan(now npos.EraIndex) {
	i.dirty = i.spans.EndSpan(now) || i.dirty
}

// compareAndUpdate raises the slash of the span containing era to slash and
// accrues the difference and the reporter reward. It returns the index of
// that span.
func (i *inspector) compareAndUpdate(era npos.EraIndex, slash npos.Balance) (uint32, bool, error) {
	target, ok := i.spans.EraSpan(era)
	if !ok {
		return 0, false, nil
	}
	rec, err := i.repo.SpanRecord(i.stash, target.Index)
	if err != nil {
		return 0, false, err
	}

	var (
		reward  npos.Balance
		changed bool
	)
	reportable := func() npos.Balance {
		share := i.rewardProportion.Mul(slash)
		return RewardF1.Mul(share - min(rec.PaidOut, share))
	}
	switch {
	case rec.Slashed < slash:
		difference := slash - rec.Slashed
		rec.Slashed = slash
		reward = reportable()
		*i.slashOf += difference
		i.spans.LastNonzeroSlash = max(i.spans.LastNonzeroSlash, era)
		changed = true
	case rec.Slashed == slash:
		reward = reportable()
	}
	if reward != 0 {
		changed = true
		rec.PaidOut += reward
		*i.paidOut += reward
	}
	if changed {
		i.dirty = true
		if err := i.repo.spanSlash.Set(npos.AddressIndexKey{Account: i.stash, Index: target.Index}, rec); err != nil {
			return 0, false, errors.Wrap(err, "failed to set span slash")
		}
	}
	return target.Index, true, nil
}

func (i *inspector) close() error {
	if !i.dirty {
		return nil
	}
	if from, to, pruned := i.spans.Prune(i.windowStart); pruned {
		for index := from; index < to; index++ {
			i.repo.spanSlash.Delete(npos.AddressIndexKey{Account: i.stash, Index: index})
		}
	}
	return errors.Wrap(i.repo.spans.Set(i.stash, i.spans), "failed to set slashing spans")
}
