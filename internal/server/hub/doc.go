// Package hub is the boundary between the transport and the relay core.
//
// The transport calls Connect once per client stream, Dispatch for every
// inbound frame (strictly in arrival order, from one goroutine) and
// Disconnect when the stream ends. The hub owns the live sessions, turns
// events into Registry, Directory and Router calls and broadcasts membership
// changes to every connected session.
//
// Outbound events are queued per session and never block the caller. A
// session whose queue overflows is closed; the transport notices through
// Session.Done and tears the stream down.
package hub
