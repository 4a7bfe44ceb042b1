// Package bridge connects RF devices to MQTT, the code history, telemetry
// and the live websocket feed.
//
// Receivers are polled on a fixed interval. Every decoded code becomes an
// Event: published on <prefix>/<bridge>/<device>/received, recorded in the
// history and pushed to websocket clients. A transmitter repeats every
// frame, so the same code from the same device within the dedupe window is
// reported once.
//
// Transmitters accept commands on <prefix>/<bridge>/<device>/send and from
// the HTTP API through Send. Sends to one device never overlap.
package bridge
