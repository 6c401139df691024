package tasks

import (
	"sort"

	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Group names a cohort recipients can be selected by.
type Group string

// Known recipient groups.
const (
	GroupAllAdmins Group = "allAdmins"
	GroupAllUsers  Group = "allUsers"
	GroupEveryone  Group = "everyone"
)

// Known reports whether the group name is one the engine understands.
func (g Group) Known() bool {
	switch g {
	case GroupAllAdmins, GroupAllUsers, GroupEveryone:
		return true
	}
	return false
}

// GroupMembers resolves a group against a user listing. The result is a
// snapshot: later membership changes never alter a selection already made
// from it.
func GroupMembers(g Group, users []upstream.User) []int64 {
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		switch g {
		case GroupAllAdmins:
			if rbac.ParseRole(u.Role) == rbac.RoleAdmin {
				ids = append(ids, u.ID)
			}
		case GroupAllUsers:
			if rbac.ParseRole(u.Role) == rbac.RoleUser {
				ids = append(ids, u.ID)
			}
		case GroupEveryone:
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// Selection tracks chosen recipients plus the fully-selected indicator per
// group. Group membership is captured when the group is selected.
type Selection struct {
	selected map[int64]struct{}
	groups   map[Group]bool
	members  map[Group][]int64
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{
		selected: make(map[int64]struct{}),
		groups:   make(map[Group]bool),
		members:  make(map[Group][]int64),
	}
}

// SelectUser adds one recipient.
func (s *Selection) SelectUser(id int64) {
	s.selected[id] = struct{}{}
	// Adding a lone user can complete a previously partial group.
	for g, ids := range s.members {
		if !s.groups[g] && s.containsAll(ids) {
			s.groups[g] = true
		}
	}
}

// DeselectUser removes one recipient. Any group whose snapshot contains the
// recipient loses its fully-selected indicator; sibling groups keep theirs.
func (s *Selection) DeselectUser(id int64) {
	delete(s.selected, id)
	for g, ids := range s.members {
		if !s.groups[g] {
			continue
		}
		for _, member := range ids {
			if member == id {
				s.groups[g] = false
				break
			}
		}
	}
}

// SelectGroup selects the union of the given members and records the
// snapshot under the group name.
func (s *Selection) SelectGroup(g Group, memberIDs []int64) {
	snapshot := make([]int64, len(memberIDs))
	copy(snapshot, memberIDs)
	s.members[g] = snapshot
	for _, id := range snapshot {
		s.selected[id] = struct{}{}
	}
	s.groups[g] = true
}

// DeselectGroup removes the group's snapshot members and clears its
// indicator. Members also covered by another selected group stay selected.
func (s *Selection) DeselectGroup(g Group) {
	ids := s.members[g]
	s.groups[g] = false
	for _, id := range ids {
		if s.coveredElsewhere(g, id) {
			continue
		}
		delete(s.selected, id)
	}
}

// GroupSelected reports the fully-selected indicator for the group.
func (s *Selection) GroupSelected(g Group) bool {
	return s.groups[g]
}

// IDs returns the selected recipients in ascending order.
func (s *Selection) IDs() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of selected recipients.
func (s *Selection) Count() int {
	return len(s.selected)
}

func (s *Selection) containsAll(ids []int64) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := s.selected[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Selection) coveredElsewhere(except Group, id int64) bool {
	for g, ids := range s.members {
		if g == except || !s.groups[g] {
			continue
		}
		for _, member := range ids {
			if member == id {
				return true
			}
		}
	}
	return false
}
