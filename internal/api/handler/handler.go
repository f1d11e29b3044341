// Package handler exposes the HTTP surface: the WebSocket handshake, the
// credential mint and the synchronous fallback endpoints that mirror the live
// channel's send and room-list operations.
package handler

import (
	"workmesh/backend/internal/chathub"
	"workmesh/backend/internal/config"
)

// Handler holds the hub and configuration shared by all routes.
type Handler struct {
	Hub *chathub.ManagerService
	Cfg *config.Config
}

func NewHandler(hub *chathub.ManagerService, cfg *config.Config) *Handler {
	return &Handler{Hub: hub, Cfg: cfg}
}
