// Package dedupe suppresses trades that were already imported for an
// account, regardless of which import path delivered them first.
package dedupe

import "github.com/edgewise-labs/tradebook/internal/models"

// Dedupe filters incoming canonical trades against the full set of trades
// already persisted for the same account. Two trades are duplicates iff
// their fingerprints match exactly; no fuzzy matching, no tolerance window.
// The pairwise scan is fine at journal scale (thousands of trades, not
// millions). Duplicates inside the incoming batch itself are collapsed too,
// so re-submitting a payload twice in one file cannot double-insert.
//
// The surviving trades have their Fingerprint field populated.
func Dedupe(incoming []models.Trade, existing []models.Trade) (unique []models.Trade, duplicates int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for i := range existing {
		fp := existing[i].Fingerprint
		if fp == "" {
			fp = existing[i].ComputeFingerprint()
		}
		seen[fp] = struct{}{}
	}

	for _, t := range incoming {
		fp := t.ComputeFingerprint()
		if _, dup := seen[fp]; dup {
			duplicates++
			continue
		}
		seen[fp] = struct{}{}
		t.Fingerprint = fp
		unique = append(unique, t)
	}
	return unique, duplicates
}
