package sync

import "time"

const (
	ArtistCreated  = "artist.created"
	ArtistUpdated  = "artist.updated"
	ArtistDeleted  = "artist.deleted"
	ReleaseCreated = "release.created"
	ReleaseUpdated = "release.updated"
	ReleaseDeleted = "release.deleted"
)

// RecordEvent tells connected clients that a catalogue record changed.
// Record is the stored row after the change; it is omitted on delete.
type RecordEvent struct {
	Type   string    `json:"type"`
	ID     int64     `json:"id"`
	Record any       `json:"record,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher is what the CRUD handlers need from the hub.
type Publisher interface {
	Publish(ev RecordEvent)
}

func NewEvent(typ string, id int64, record any) RecordEvent {
	return RecordEvent{Type: typ, ID: id, Record: record, At: time.Now().UTC()}
}
