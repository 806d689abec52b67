package insights

import "time"

// Overview carries the headline dashboard counters.
type Overview struct {
	OpenConversations       int64 `json:"open_conversations"`
	PendingConversations    int64 `json:"pending_conversations"`
	ResolvedToday           int64 `json:"resolved_today"`
	NewContactsThisWeek     int64 `json:"new_contacts_this_week"`
	UnassignedConversations int64 `json:"unassigned_conversations"`
}

// VolumePoint is one day of message traffic.
type VolumePoint struct {
	Day      time.Time `json:"day"`
	Inbound  int64     `json:"inbound"`
	Outbound int64     `json:"outbound"`
}

// WorkloadRow counts open conversations per assignee.
type WorkloadRow struct {
	AssigneeID   int64  `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	Open         int64  `json:"open"`
}
