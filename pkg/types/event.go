package types

import "time"

type EventType string

const (
	EventHostDown         EventType = "HostDown"
	EventHostUp           EventType = "HostUp"
	EventSocketExhaustion EventType = "SocketExhaustion"
	EventFileArrived      EventType = "FileArrived"
)

type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"ts"`
	Target    string         `json:"target,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
