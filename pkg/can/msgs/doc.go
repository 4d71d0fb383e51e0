// Package msgs defines the protobuf messages exchanged over
// message based transports (MQTT, websocket).
package msgs
