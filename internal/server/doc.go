// Package server is the HTTP surface: the releve API, the map payload and
// overlay endpoints, the widget WebSocket upgrade, and the observability
// endpoints.
package server
