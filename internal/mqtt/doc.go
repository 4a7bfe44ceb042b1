// Package mqtt wraps the Eclipse Paho client for the rf bridge.
//
// It connects with a retained online/offline status topic backed by a Last
// Will, validates publishes, and restores subscriptions after a reconnect.
//
// Topic layout, with prefix "rftrx" and bridge id "garage":
//
//	rftrx/garage/status             retained {"status":"online",...}
//	rftrx/garage/<device>/received  decoded codes
//	rftrx/garage/<device>/send      send commands, {"code":255} or "255"
package mqtt
