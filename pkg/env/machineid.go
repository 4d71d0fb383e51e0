// Package env provides the identity of the host running the bridge.
package env

import (
	"fmt"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the protected machine ID.
const AppID = "ambsi"

// MachineID retrieves an ID identifying the machine, derived from the
// OS machine ID so the raw value isn't exposed on the bus.
// It returns an empty string when the OS provides none.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return ""
	}
	return id
}

// ClientID builds the MQTT client ID of a bridge node.
func ClientID(id string, node byte) string {
	if len(id) > 12 {
		id = id[:12]
	}
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("%s:%s:%02x", AppID, id, node)
}
