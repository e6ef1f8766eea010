package hub

import (
	"sort"
	"sync"

	"go-push-notification/internal/infrastructure/metrics"
)

// groups is the membership set: group name -> set of connection ids.
type groups struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

func newGroups() *groups {
	return &groups{members: make(map[string]map[string]struct{})}
}

// add reports whether id was newly added.
func (g *groups) add(group, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.members[group]
	if !ok {
		set = make(map[string]struct{})
		g.members[group] = set
	}
	if _, exists := set[id]; exists {
		return false
	}
	set[id] = struct{}{}
	metrics.GroupMembers.WithLabelValues(group).Set(float64(len(set)))
	return true
}

// remove reports whether id was a member.
func (g *groups) remove(group, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.members[group]
	if !ok {
		return false
	}
	if _, exists := set[id]; !exists {
		return false
	}
	delete(set, id)
	metrics.GroupMembers.WithLabelValues(group).Set(float64(len(set)))
	if len(set) == 0 {
		delete(g.members, group)
	}
	return true
}

// snapshot returns a sorted copy of the members of group, safe to iterate
// while the set keeps changing.
func (g *groups) snapshot(group string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := g.members[group]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *groups) count(group string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members[group])
}
