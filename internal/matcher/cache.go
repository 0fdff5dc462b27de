// Package matcher implements the similarity aggregation and the
// rough/precise/hybrid matching funnel over stored fragments.
package matcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"career-copilot-go/internal/types"
)

// mergeFieldOrder is the preferred section order when merging a
// document's fragments into one text. Fields not listed follow in
// encounter order.
var mergeFieldOrder = []string{
	types.FieldSummary,
	types.FieldExperience,
	types.FieldSkills,
	types.FieldEducation,
	types.FieldCertifications,
	types.FieldProjects,
	types.FieldAchievements,
}

// MergeFunc computes the merged text for a fragment list.
type MergeFunc func([]types.Fragment) string

// MergeCache memoizes the fragment-merge step per candidate. It lives as
// long as the funnel that owns it; Clear is the only eviction. Keys are
// content-derived when no candidate id is available, so identical
// fragment sets hit the cache regardless of caller-side ordering.
type MergeCache struct {
	mu      sync.RWMutex
	entries map[string]string
	hits    uint64
	misses  uint64
}

// CacheStats reports merge-cache usage.
type CacheStats struct {
	CachedItems      int    `json:"cached_items"`
	TotalMemoryChars int    `json:"total_memory_chars"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
}

// NewMergeCache creates an empty merge cache.
func NewMergeCache() *MergeCache {
	return &MergeCache{entries: make(map[string]string)}
}

// GetOrCompute returns the cached merge result for the candidate, or
// computes, stores and returns it. A hit is byte-identical to what the
// miss computed; downstream deep evaluation depends on that.
func (c *MergeCache) GetOrCompute(candidateID string, fragments []types.Fragment, compute MergeFunc) string {
	key := candidateID
	if key == "" {
		key = hashFragments(fragments)
	}

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return cached
	}

	merged := compute(fragments)

	c.mu.Lock()
	c.entries[key] = merged
	c.misses++
	c.mu.Unlock()
	return merged
}

// Clear drops every cached entry.
func (c *MergeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Stats returns current cache statistics.
func (c *MergeCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, v := range c.entries {
		total += len(v)
	}
	return CacheStats{
		CachedItems:      len(c.entries),
		TotalMemoryChars: total,
		Hits:             c.hits,
		Misses:           c.misses,
	}
}

// hashFragments derives an order-independent key from a fragment list:
// each fragment is serialized, the serializations are sorted, and the
// result hashed. Caller-side reordering therefore cannot split the cache.
func hashFragments(fragments []types.Fragment) string {
	serialized := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		data, err := json.Marshal(fragment)
		if err != nil {
			// Fragment is a plain struct; Marshal cannot fail on it.
			continue
		}
		serialized = append(serialized, string(data))
	}
	sort.Strings(serialized)

	h := sha256.New()
	for _, s := range serialized {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MergeFragments renders a fragment list as one document: fragments are
// grouped by field, sections are emitted as "## FIELD" headers in the
// preferred order, then any remaining fields in encounter order.
func MergeFragments(fragments []types.Fragment) string {
	if len(fragments) == 0 {
		return ""
	}

	groups := make(map[string][]string)
	var encounter []string
	for _, fragment := range fragments {
		if _, seen := groups[fragment.Field]; !seen {
			encounter = append(encounter, fragment.Field)
		}
		groups[fragment.Field] = append(groups[fragment.Field], fragment.Content)
	}

	preferred := make(map[string]bool, len(mergeFieldOrder))
	var sections []string
	appendSection := func(field string) {
		contents, ok := groups[field]
		if !ok {
			return
		}
		sections = append(sections, "## "+strings.ToUpper(field)+"\n"+strings.Join(contents, "\n"))
	}

	for _, field := range mergeFieldOrder {
		preferred[field] = true
		appendSection(field)
	}
	for _, field := range encounter {
		if !preferred[field] {
			appendSection(field)
		}
	}

	return strings.Join(sections, "\n\n")
}
