// Package store holds the client side state: the issue list with its filters
// and the authenticated session.
package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/issuedesk/apiserver/types"
)

// FilterAll disables a status or priority filter.
const FilterAll = "All"

// IssueState is the client view of the issue collection. Transitions return
// a new state and leave the receiver untouched.
type IssueState struct {
	Issues         []types.Issue
	Selected       *types.Issue
	SearchTerm     string
	StatusFilter   string
	PriorityFilter string
}

// NewIssueState returns an empty state with every filter off.
func NewIssueState() IssueState {
	return IssueState{
		Issues:         []types.Issue{},
		StatusFilter:   FilterAll,
		PriorityFilter: FilterAll,
	}
}

func (s IssueState) SetIssues(issues []types.Issue) IssueState {
	s.Issues = slices.Clone(issues)
	if s.Issues == nil {
		s.Issues = []types.Issue{}
	}
	return s
}

// AddIssue puts issue at the front of the list.
func (s IssueState) AddIssue(issue types.Issue) IssueState {
	s.Issues = append([]types.Issue{issue}, s.Issues...)
	return s
}

// UpdateIssue replaces the issue with the given id. Unknown ids leave the
// list unchanged.
func (s IssueState) UpdateIssue(id string, issue types.Issue) IssueState {
	issues := slices.Clone(s.Issues)
	for i := range issues {
		if issues[i].ID == id {
			issue.ID = id
			issues[i] = issue
		}
	}
	s.Issues = issues
	if s.Selected != nil && s.Selected.ID == id {
		selected := issue
		s.Selected = &selected
	}
	return s
}

func (s IssueState) DeleteIssue(id string) IssueState {
	s.Issues = slices.DeleteFunc(slices.Clone(s.Issues), func(issue types.Issue) bool {
		return issue.ID == id
	})
	if s.Selected != nil && s.Selected.ID == id {
		s.Selected = nil
	}
	return s
}

// SetSelected marks issue as selected. nil clears the selection.
func (s IssueState) SetSelected(issue *types.Issue) IssueState {
	if issue == nil {
		s.Selected = nil
		return s
	}
	selected := *issue
	s.Selected = &selected
	return s
}

func (s IssueState) SetSearchTerm(term string) IssueState {
	s.SearchTerm = term
	return s
}

func (s IssueState) SetStatusFilter(status string) IssueState {
	s.StatusFilter = status
	return s
}

func (s IssueState) SetPriorityFilter(priority string) IssueState {
	s.PriorityFilter = priority
	return s
}

// FilteredIssues returns the issues matching the search term and both
// filters, in list order. An empty term matches everything.
func FilteredIssues(s IssueState) []types.Issue {
	term := strings.ToLower(s.SearchTerm)
	out := make([]types.Issue, 0, len(s.Issues))
	for _, issue := range s.Issues {
		matchesSearch := strings.Contains(strings.ToLower(issue.Title), term) ||
			strings.Contains(strings.ToLower(issue.Description), term)
		matchesStatus := s.StatusFilter == FilterAll || string(issue.Status) == s.StatusFilter
		matchesPriority := s.PriorityFilter == FilterAll || string(issue.Priority) == s.PriorityFilter
		if matchesSearch && matchesStatus && matchesPriority {
			out = append(out, issue)
		}
	}
	return out
}

// Counts summarizes the whole collection by status.
type Counts struct {
	Total    int
	Open     int
	Resolved int
	Closed   int
}

func CountIssues(s IssueState) Counts {
	c := Counts{Total: len(s.Issues)}
	for _, issue := range s.Issues {
		switch issue.Status {
		case types.IssueStatusOpen:
			c.Open++
		case types.IssueStatusResolved:
			c.Resolved++
		case types.IssueStatusClosed:
			c.Closed++
		}
	}
	return c
}

// IssueView is what a view needs from the issue store.
type IssueView interface {
	Snapshot() IssueState
	Filtered() []types.Issue
	Counts() Counts
	SetSearchTerm(term string)
	SetStatusFilter(status string)
	SetPriorityFilter(priority string)
	SetSelected(issue *types.Issue)
}

// IssueStore is a goroutine safe holder of IssueState.
type IssueStore struct {
	mu    sync.RWMutex
	state IssueState
}

var _ IssueView = (*IssueStore)(nil)

func NewIssueStore() *IssueStore {
	return &IssueStore{state: NewIssueState()}
}

func (s *IssueStore) apply(fn func(IssueState) IssueState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
}

// Snapshot returns the current state. Callers must not modify the slices.
func (s *IssueStore) Snapshot() IssueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *IssueStore) Filtered() []types.Issue {
	return FilteredIssues(s.Snapshot())
}

func (s *IssueStore) Counts() Counts {
	return CountIssues(s.Snapshot())
}

func (s *IssueStore) SetIssues(issues []types.Issue) {
	s.apply(func(st IssueState) IssueState { return st.SetIssues(issues) })
}

func (s *IssueStore) AddIssue(issue types.Issue) {
	s.apply(func(st IssueState) IssueState { return st.AddIssue(issue) })
}

func (s *IssueStore) UpdateIssue(id string, issue types.Issue) {
	s.apply(func(st IssueState) IssueState { return st.UpdateIssue(id, issue) })
}

func (s *IssueStore) DeleteIssue(id string) {
	s.apply(func(st IssueState) IssueState { return st.DeleteIssue(id) })
}

func (s *IssueStore) SetSelected(issue *types.Issue) {
	s.apply(func(st IssueState) IssueState { return st.SetSelected(issue) })
}

func (s *IssueStore) SetSearchTerm(term string) {
	s.apply(func(st IssueState) IssueState { return st.SetSearchTerm(term) })
}

func (s *IssueStore) SetStatusFilter(status string) {
	s.apply(func(st IssueState) IssueState { return st.SetStatusFilter(status) })
}

func (s *IssueStore) SetPriorityFilter(priority string) {
	s.apply(func(st IssueState) IssueState { return st.SetPriorityFilter(priority) })
}
