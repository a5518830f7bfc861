package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Issue represents a tracked unit of work.
// It carries the workflow state (status, priority) and an optional assignee.
type Issue struct {
	// ID is the server-assigned opaque identifier of the issue.
	// It never changes for the lifetime of the record.
	ID string `json:"id" db:"id"`

	// Title is the short human-readable summary of the issue.
	Title string `json:"title" db:"title"`

	// Description contains the full text of the issue.
	Description string `json:"description" db:"description"`

	// Status is the workflow state of the issue.
	Status IssueStatus `json:"status" db:"status"`

	// Priority indicates how urgent the issue is.
	Priority IssuePriority `json:"priority" db:"priority"`

	// Assignee is a free-text name of whoever works on the issue.
	// A nil value means the issue is unassigned.
	Assignee *string `json:"assignee" db:"assignee"`

	// CreatedAt is the timestamp at which the issue was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent mutation of the issue.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IssueStatus is the workflow state of an issue.
type IssueStatus string

// Supported issue statuses.
const (
	IssueStatusOpen     IssueStatus = "Open"
	IssueStatusResolved IssueStatus = "Resolved"
	IssueStatusClosed   IssueStatus = "Closed"
)

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusResolved, IssueStatusClosed:
		return true
	default:
		return false
	}
}

// IssuePriority is the urgency of an issue.
type IssuePriority string

// Supported issue priorities.
const (
	IssuePriorityLow    IssuePriority = "Low"
	IssuePriorityMedium IssuePriority = "Medium"
	IssuePriorityHigh   IssuePriority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh:
		return true
	default:
		return false
	}
}

// IssueInput holds the fields accepted when creating an issue.
// Empty Status and Priority fall back to their defaults.
type IssueInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      IssueStatus   `json:"status,omitempty"`
	Priority    IssuePriority `json:"priority,omitempty"`
	Assignee    *string       `json:"assignee,omitempty"`
}

// IssuePatch describes a partial update of an issue.
// Nil fields are left untouched; Assignee distinguishes "absent" from "null".
type IssuePatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *IssueStatus   `json:"status,omitempty"`
	Priority    *IssuePriority `json:"priority,omitempty"`
	Assignee    NullableString `json:"assignee,omitzero"`
}

// Empty reports whether the patch carries no field at all.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && !p.Assignee.Set
}

// Apply returns a copy of issue with the patch merged in.
func (p IssuePatch) Apply(issue Issue) Issue {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Status != nil {
		issue.Status = *p.Status
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.Assignee.Set {
		issue.Assignee = p.Assignee.Value
	}
	return issue
}

// NullableString is a JSON string field that records whether it was present.
// An explicit null sets Set with a nil Value.
type NullableString struct {
	Set   bool
	Value *string
}

// NewNullableString returns a present, non-null value.
func NewNullableString(value string) NullableString {
	return NullableString{Set: true, Value: &value}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	n.Value = &value
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// IsZero lets encoders with omitzero skip absent values.
func (n NullableString) IsZero() bool {
	return !n.Set
}
