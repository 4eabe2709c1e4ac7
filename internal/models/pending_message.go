package models

// PendingStatus is the lifecycle state of a client-side optimistic message.
type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending"
	PendingStatusFailed  PendingStatus = "failed"
)

// PendingMessage is a client-only placeholder shown while a send request is in
// flight. It uses TempID as its provisional identity until the matching
// server-confirmed Message replaces it, or Status becomes failed if the send
// errored. A PendingMessage never reaches the server.
type PendingMessage struct {
	Message
	TempID string        `json:"_tempId"`
	Status PendingStatus `json:"_status"`
}
