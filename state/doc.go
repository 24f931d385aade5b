// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state provides the transactional key-value state the staking engine
// runs on. Writes are journaled in a stacked map so any call can be rolled
// back to a checkpoint, and are only persisted by committing a Stage.
package state
