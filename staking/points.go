// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
)

// RewardByIDs credits reward points of the active era. It does nothing
// before the first era starts.
func (s *Staking) RewardByIDs(points []ValidatorPoints) error {
	return s.txn("reward_by_ids", func() error {
		active, found, err := s.ActiveEra()
		if err != nil || !found {
			return err
		}
		rewards, err := s.EraRewardPoints(active.Index)
		if err != nil {
			return err
		}
		for _, p := range points {
			rewards.Add(p.Validator, p.Points)
		}
		return errors.Wrap(s.store.erasRewardPoints.Set(npos.EraKey(active.Index), rewards), "failed to set era reward points")
	})
}

// NoteAuthor credits the author of a block.
func (s *Staking) NoteAuthor(author npos.Address) error {
	return s.RewardByIDs([]ValidatorPoints{{Validator: author, Points: s.cfg.AuthorPoints}})
}
