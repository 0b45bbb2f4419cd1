// Package websocket is the live update gateway: it owns client connections,
// groups them into per-patient rooms and serves the /ws endpoint.
//
// Hub implements domain.Gateway. Handler upgrades connections, dispatches
// start_live_updates/stop_live_updates frames to the broadcaster and cleans up
// when the read loop ends.
package websocket
