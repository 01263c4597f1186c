// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import "strings"

// Signal groups shown to clients.
const (
	GroupCore      = "core"
	GroupContent   = "content"
	GroupCreative  = "creative"
	GroupContext   = "context"
	GroupNovelty   = "novelty"
	GroupDiversity = "diversity"
	GroupAnti      = "anti"
	GroupRuntime   = "runtime"
)

const topSignalKeys = 12

var contentPrefixes = []string{"genre:", "country:", "decade:", "lang:", "keyword:", "collection:"}

// InferSignalGroup classifies a signal key. Unknown keys are core.
func InferSignalGroup(key string) string {
	switch key {
	case "rating", "popularity", "freshness", "recency", "similarity":
		return GroupCore
	case "mood", "mindset", "company",
		"context_mood_light", "context_mood_neutral", "context_mood_heavy",
		"context_company_solo", "context_company_duo", "context_company_friends", "context_company_family":
		return GroupContext
	case "novelty":
		return GroupNovelty
	case "diversity":
		return GroupDiversity
	case "anti":
		return GroupAnti
	case "runtimeFit", "pace", "ageRatingFit",
		"runtime_bucket_short", "runtime_bucket_medium", "runtime_bucket_long":
		return GroupRuntime
	}
	for _, p := range contentPrefixes {
		if strings.HasPrefix(key, p) {
			return GroupContent
		}
	}
	if strings.HasPrefix(key, "person:") {
		return GroupCreative
	}
	return GroupCore
}

// BuildSignalPayload returns the persisted form of a signal map: all values,
// the twelve strongest keys and a count of those keys per group.
func BuildSignalPayload(s Signals) SignalPayload {
	sorted := sortedByMagnitude(s)
	n := len(sorted)
	if n > topSignalKeys {
		n = topSignalKeys
	}
	payload := SignalPayload{
		Values:    s,
		TopKeys:   make([]string, 0, n),
		TopGroups: make(map[string]int),
	}
	for _, kv := range sorted[:n] {
		payload.TopKeys = append(payload.TopKeys, kv.key)
		payload.TopGroups[InferSignalGroup(kv.key)]++
	}
	return payload
}
