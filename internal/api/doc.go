// Package api provides the HTTP REST API and WebSocket server for Pulse.
//
// It exposes registration, login, protected profile and resource routes,
// and a room-based WebSocket hub that fans resource updates out to
// subscribed clients.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is enforced twice with the same Authenticator: HTTP
// middleware reads the token cookie (falling back to a Bearer header),
// and the WebSocket handshake reads a Bearer header (falling back to a
// token query parameter). Either path rejects tokens whose session was
// superseded by a newer login.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
