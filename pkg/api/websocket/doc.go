// Package websocket provides real-time message streaming via WebSocket.
//
// Clients can connect to /api/v1/channels/:name/ws to follow a bus
// channel as an ordinary subscriber.
package websocket
