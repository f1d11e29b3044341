package chatclient

import (
	"strconv"
	"time"

	"workmesh/backend/internal/models"
)

// Entry is one message as rendered in a room timeline. A Pending entry is an
// optimistic local send that has not been confirmed yet; it has a correlation
// id but no permanent id. A Failed entry is a pending send the server
// rejected; it stays in the timeline so the caller can offer a retry.
type Entry struct {
	ID            uint
	CorrelationID string
	RoomID        string
	SenderID      string
	Content       string
	ReplyTo       *uint
	CreatedAt     time.Time
	ReadBy        []string
	Pending       bool
	Failed        bool
}

// Known-id keys distinguish permanent ids from correlation ids in one set.
func permKey(id uint) string     { return "m:" + strconv.FormatUint(uint64(id), 10) }
func corrKey(corr string) string { return "c:" + corr }

// Merge reconciles one incoming message event into a timeline. It is a pure
// function over (list, known, incoming) with no transport or rendering
// dependencies:
//
//  1. an already-known permanent id is a duplicate delivery and is dropped
//     (the transport is at-least-once, not exactly-once);
//  2. a known correlation id is the confirmation of this session's own
//     optimistic send and replaces that entry in place;
//  3. anything else is appended, preserving arrival order, which within one
//     room is the durable storage order.
//
// known is mutated to absorb the incoming ids; the returned slice is the new
// timeline.
func Merge(list []Entry, known map[string]struct{}, in Entry) []Entry {
	if in.ID != 0 {
		if _, dup := known[permKey(in.ID)]; dup {
			return list
		}
	}

	if in.CorrelationID != "" {
		if _, mine := known[corrKey(in.CorrelationID)]; mine {
			for i := range list {
				if list[i].CorrelationID == in.CorrelationID {
					in.Pending = false
					list[i] = in
					break
				}
			}
			if in.ID != 0 {
				known[permKey(in.ID)] = struct{}{}
			}
			return list
		}
	}

	if in.ID != 0 {
		known[permKey(in.ID)] = struct{}{}
	}
	if in.CorrelationID != "" {
		known[corrKey(in.CorrelationID)] = struct{}{}
	}
	return append(list, in)
}

// entryFromWire converts a server-confirmed message into a timeline entry.
func entryFromWire(w *models.WireMessage) Entry {
	return Entry{
		ID:            w.ID,
		CorrelationID: w.CorrelationID,
		RoomID:        w.RoomID,
		SenderID:      w.SenderID,
		Content:       w.Content,
		ReplyTo:       w.ReplyTo,
		CreatedAt:     w.CreatedAt,
		ReadBy:        w.ReadBy,
	}
}
