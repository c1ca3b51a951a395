// Package mqtt provides an optional outbound MQTT event bridge for Pulse.
//
// When enabled in config, resource change events already broadcast to
// WebSocket clients are also published to an MQTT broker, so external
// integrations can consume them without holding a WebSocket connection.
//
// The bridge is publish-only: Pulse never subscribes to broker topics.
// Delivery is best-effort; a failed publish is logged and dropped, and
// never blocks or fails the originating HTTP request.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishEvent("resource/42", "resourceUpdated", resource)
package mqtt
