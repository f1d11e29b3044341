package chathub

import "workmesh/backend/internal/models"

// Client is the interface for one live connection managed by the hub. It
// abstracts the underlying transport so the hub can manage connections
// uniformly and tests can substitute doubles.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound envelopes
	// to. It is a send-only channel.
	GetSendChannel() chan<- models.Envelope

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the connection's outbound side. Safe to call more
	// than once.
	Close()
}

// InboundFrame pairs a decoded control envelope with the connection it
// arrived on, so the hub loop knows the authenticated sender.
type InboundFrame struct {
	Client Client
	Env    models.Envelope
}
