// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/tomtom215/reelsense/internal/metrics"
)

// bucket reduces a stable 64-bit FNV-1a hash of key modulo n.
func bucket(key string, n int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}

// PickVariant returns the weight variant for a user. mode "A" or "B" forces
// the variant; anything else hashes the user id.
func PickVariant(userID, mode string) string {
	if mode == VariantA || mode == VariantB {
		return mode
	}
	return variantOrder[bucket(userID, len(variantOrder))]
}

// assignBucket deterministically picks one of the variant keys. Keys are
// sorted so the result does not depend on map order.
func assignBucket(experimentKey, userID string, variants map[string]ExperimentVariant) string {
	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	if len(keys) == 1 {
		return keys[0]
	}
	sort.Strings(keys)
	return keys[bucket(experimentKey+":"+userID, len(keys))]
}

// resolveExperiment returns the user's assignment for the configured
// experiment, creating it once when missing. It returns nil when there is no
// active experiment.
func (s *Service) resolveExperiment(ctx context.Context, userID string) (*Assignment, error) {
	if s.experiments == nil || s.cfg.ExperimentKey == "" {
		return nil, nil
	}
	key := s.cfg.ExperimentKey
	exp, err := s.experiments.GetExperiment(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment %s: %w", key, err)
	}
	if exp == nil || !exp.Active {
		return nil, nil
	}
	if exp.Invalid || exp.Variants == nil {
		s.logger.Warn().Str("experiment", key).Msg("Experiment config has no variants, using control")
		exp.Variants = map[string]ExperimentVariant{"control": {}}
	}

	for attempt := 0; attempt < s.cfg.ConflictRetries; attempt++ {
		existing, err := s.experiments.GetAssignment(ctx, userID, key)
		if err == nil && existing != nil {
			if cfg, ok := exp.Variants[existing.VariantKey]; ok {
				existing.Config = cfg
			}
			return existing, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get assignment: %w", err)
		}

		variantKey := assignBucket(key, userID, exp.Variants)
		if variantKey == "" {
			return nil, nil
		}
		a := Assignment{ExperimentKey: key, VariantKey: variantKey, Config: exp.Variants[variantKey]}
		err = s.experiments.CreateAssignment(ctx, userID, a)
		if err == nil {
			metrics.ExperimentAssignments.WithLabelValues(key, variantKey).Inc()
			return &a, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("create assignment: %w", err)
		}
		// a concurrent request won; re-read its assignment
	}
	return nil, fmt.Errorf("assign experiment %s: %w", key, ErrConflict)
}

// applyAssignment fills context fields the caller left unset.
func applyAssignment(c Context, a *Assignment) Context {
	if a == nil {
		return c
	}
	if c.DiversityLevel == "" && a.Config.DiversityLevel != "" {
		c.DiversityLevel = a.Config.DiversityLevel
	}
	if c.NoveltyBias == "" && a.Config.NoveltyBias != "" {
		c.NoveltyBias = a.Config.NoveltyBias
	}
	return c
}
