package models

// TrackerStatus is a workflow status of a Yandex Tracker issue
type TrackerStatus struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Display string `json:"display"`
}

// TrackerIssue represents a Yandex Tracker issue
type TrackerIssue struct {
	ID      string                 `json:"id"`
	Key     string                 `json:"key"`
	Summary string                 `json:"summary"`
	Status  TrackerStatus          `json:"status"`
	Fields  map[string]interface{} `json:"-"`
}

// TrackerTransition is a workflow transition offered for an issue
type TrackerTransition struct {
	ID      string        `json:"id"`
	Display string        `json:"display"`
	To      TrackerStatus `json:"to"`
}

// TrackerLinkRef is the issue at the other end of a link
type TrackerLinkRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// TrackerLinkType describes the relationship of a link
type TrackerLinkType struct {
	ID      string `json:"id"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// TrackerLink is an existing link on an issue
type TrackerLink struct {
	ID        int64           `json:"id"`
	Type      TrackerLinkType `json:"type"`
	Direction string          `json:"direction"`
	Object    TrackerLinkRef  `json:"object"`
}

// TrackerComponent is a queue component
type TrackerComponent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TrackerQueue is a Yandex Tracker queue
type TrackerQueue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TrackerCapabilities describes how the destination assigns issue keys
type TrackerCapabilities struct {
	ExplicitKeys   bool
	SequentialKeys bool
}
