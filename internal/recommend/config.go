// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"fmt"
	"time"
)

// Config tunes the engine. Zero values are replaced by DefaultConfig values
// in NewService.
type Config struct {
	// HalfLifeDays controls recency decay of interactions; <= 0 disables decay.
	HalfLifeDays float64

	// SourceWeights scales interactions by origin. Unknown sources weigh 1.
	SourceWeights map[Source]float64

	// WeightMode selects the weight variant: "auto", "A" or "B".
	WeightMode string

	// ExperimentKey names the experiment consulted on every request.
	ExperimentKey string

	PoolTTL            time.Duration
	PoolSizeMultiplier int
	RecentServedLimit  int
	AnchorSeeds        int
	SimilarPerAnchor   int
	TrendingSnapshot   int
	TrendingLive       int
	PopularSnapshot    int
	PopularLive        int
	ResolveBatchSize   int

	// ConflictRetries bounds retries of unique-constraint races.
	ConflictRetries int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays: 180,
		SourceWeights: map[Source]float64{
			SourceOnboarding:     0.6,
			SourceImport:         0.8,
			SourceManual:         1.0,
			SourceRecommendation: 1.0,
		},
		WeightMode:         "auto",
		ExperimentKey:      "main",
		PoolTTL:            5 * time.Minute,
		PoolSizeMultiplier: 10,
		RecentServedLimit:  80,
		AnchorSeeds:        4,
		SimilarPerAnchor:   12,
		TrendingSnapshot:   40,
		TrendingLive:       15,
		PopularSnapshot:    30,
		PopularLive:        12,
		ResolveBatchSize:   6,
		ConflictRetries:    3,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.WeightMode {
	case "auto", "A", "B":
	default:
		return fmt.Errorf("weight mode must be auto, A or B, got %q", c.WeightMode)
	}
	if c.PoolTTL <= 0 {
		return fmt.Errorf("pool TTL must be positive, got %v", c.PoolTTL)
	}
	if c.ResolveBatchSize < 1 {
		return fmt.Errorf("resolve batch size must be at least 1, got %d", c.ResolveBatchSize)
	}
	if c.ConflictRetries < 1 {
		return fmt.Errorf("conflict retries must be at least 1, got %d", c.ConflictRetries)
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SourceWeights == nil {
		c.SourceWeights = d.SourceWeights
	}
	if c.WeightMode == "" {
		c.WeightMode = d.WeightMode
	}
	if c.ExperimentKey == "" {
		c.ExperimentKey = d.ExperimentKey
	}
	if c.PoolTTL <= 0 {
		c.PoolTTL = d.PoolTTL
	}
	if c.PoolSizeMultiplier <= 0 {
		c.PoolSizeMultiplier = d.PoolSizeMultiplier
	}
	if c.RecentServedLimit <= 0 {
		c.RecentServedLimit = d.RecentServedLimit
	}
	if c.AnchorSeeds <= 0 {
		c.AnchorSeeds = d.AnchorSeeds
	}
	if c.SimilarPerAnchor <= 0 {
		c.SimilarPerAnchor = d.SimilarPerAnchor
	}
	if c.TrendingSnapshot <= 0 {
		c.TrendingSnapshot = d.TrendingSnapshot
	}
	if c.TrendingLive <= 0 {
		c.TrendingLive = d.TrendingLive
	}
	if c.PopularSnapshot <= 0 {
		c.PopularSnapshot = d.PopularSnapshot
	}
	if c.PopularLive <= 0 {
		c.PopularLive = d.PopularLive
	}
	if c.ResolveBatchSize <= 0 {
		c.ResolveBatchSize = d.ResolveBatchSize
	}
	if c.ConflictRetries <= 0 {
		c.ConflictRetries = d.ConflictRetries
	}
	return c
}

func (c *Config) sourceWeight(s Source) float64 {
	if w, ok := c.SourceWeights[s]; ok {
		return w
	}
	return 1
}
