// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"fmt"
	"testing"
)

func TestInferSignalGroup(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"rating":                 GroupCore,
		"similarity":             GroupCore,
		"genre:drama":            GroupContent,
		"decade:1990":            GroupContent,
		"lang:fr":                GroupContent,
		"collection:Alien":       GroupContent,
		"person:Jane":            GroupCreative,
		"mood":                   GroupContext,
		"context_company_family": GroupContext,
		"novelty":                GroupNovelty,
		"diversity":              GroupDiversity,
		"anti":                   GroupAnti,
		"runtimeFit":             GroupRuntime,
		"runtime_bucket_long":    GroupRuntime,
		"somethingElse":          GroupCore,
	}
	for key, want := range tests {
		if got := InferSignalGroup(key); got != want {
			t.Errorf("InferSignalGroup(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestBuildSignalPayload(t *testing.T) {
	t.Parallel()

	s := Signals{}
	for i := 0; i < 20; i++ {
		s[fmt.Sprintf("genre:g%02d", i)] = float64(i)
	}
	s["anti"] = -100

	p := BuildSignalPayload(s)
	if len(p.Values) != 21 {
		t.Errorf("len(Values) = %d, want 21", len(p.Values))
	}
	if len(p.TopKeys) != topSignalKeys {
		t.Fatalf("len(TopKeys) = %d, want %d", len(p.TopKeys), topSignalKeys)
	}
	if p.TopKeys[0] != "anti" || p.TopKeys[1] != "genre:g19" {
		t.Errorf("TopKeys = %v", p.TopKeys)
	}
	if p.TopGroups[GroupAnti] != 1 || p.TopGroups[GroupContent] != 11 {
		t.Errorf("TopGroups = %v", p.TopGroups)
	}
}
