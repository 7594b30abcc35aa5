package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/npeters/go-taskroom/internal/server"
)

type NotificationType string

const (
	NotificationTask   NotificationType = "task"
	NotificationReport NotificationType = "report"
	NotificationOther  NotificationType = "other"
)

type Notification struct {
	Id      int              `json:"id"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	Read    bool             `json:"read"`
}

// NotificationStore accumulates inbound targeted events into an ordered,
// read-tracked list, independent of any one view. It lives for the session
// only; nothing is evicted or persisted.
type NotificationStore struct {
	mu      sync.Mutex
	nextId  int
	entries []Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Add prepends a new unread entry. Every event becomes exactly one entry;
// semantically repeated events are not deduplicated.
func (ns *NotificationStore) Add(message string, typ NotificationType) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.nextId++
	ns.entries = append([]Notification{{
		Id:      ns.nextId,
		Message: message,
		Type:    typ,
	}}, ns.entries...)
}

// MarkAllRead flips every entry to read. Idempotent.
func (ns *NotificationStore) MarkAllRead() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	for i := range ns.entries {
		ns.entries[i].Read = true
	}
}

// UnreadCount is recomputed from the entries on every call so it can never
// drift from the list.
func (ns *NotificationStore) UnreadCount() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	var count int
	for _, n := range ns.entries {
		if !n.Read {
			count++
		}
	}

	return count
}

// Notifications returns a snapshot of the list, newest first.
func (ns *NotificationStore) Notifications() []Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	out := make([]Notification, len(ns.entries))
	copy(out, ns.entries)

	return out
}

// Subscribe wires the store to a connection manager: targeted task and
// report events become notification entries with human-readable messages.
func (ns *NotificationStore) Subscribe(m *ConnManager) {
	m.Handle(server.EventNewTask, func(data json.RawMessage) {
		var p server.TaskAssigned
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ns.Add(fmt.Sprintf("%q was assigned by %s.", p.Title, p.CreatorName), NotificationTask)
	})

	m.Handle(server.EventNewReport, func(data json.RawMessage) {
		var p server.ReportSubmitted
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ns.Add(fmt.Sprintf("%s submitted a report for %q.", p.StaffName, p.TaskTitle), NotificationReport)
	})
}
