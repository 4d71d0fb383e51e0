// Package ambsi provides shell commands talking to a bridge node.
package ambsi

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/bridge"
	"github.com/robotalks/ambsi.go/pkg/cli/sh"
	"github.com/robotalks/ambsi.go/pkg/diag"
	"github.com/robotalks/ambsi.go/pkg/sensor"
	"github.com/robotalks/ambsi.go/pkg/setup"
)

// Timers is the decoded content of the four timer monitor points.
type Timers struct {
	MonitorAddress [4]uint16 `json:"monitor_address"`
	MonitorOther   [4]uint16 `json:"monitor_other"`
	ControlAddress [4]uint16 `json:"control_address"`
	ControlOther   [4]uint16 `json:"control_other"`
}

// SlaveInfo is the decoded content of the slave built-in points.
type SlaveInfo struct {
	Revision     string `json:"revision"`
	Errors       uint16 `json:"errors"`
	LastError    byte   `json:"last_error"`
	Transactions uint32 `json:"transactions"`
}

func monitor(c *ishell.Context, client *sh.Client, rca uint32) ([]byte, bool) {
	data, err := client.Monitor(context.Background(), rca)
	if err != nil {
		c.Err(fmt.Errorf("monitor 0x%05x: %w", rca, err))
		return nil, false
	}
	return data, true
}

func parseRCA(c *ishell.Context) (uint32, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("RCA expected"))
		return 0, false
	}
	rca, err := sh.ParseUint(c.Args[0], 32)
	if err != nil || uint32(rca) > amb.MaxRelative {
		c.Err(fmt.Errorf("invalid RCA %q", c.Args[0]))
		return 0, false
	}
	return uint32(rca), true
}

func formatVersion(data []byte) string {
	if len(data) != 3 {
		return sh.FormatBytes(data)
	}
	return fmt.Sprintf("%d.%d.%d", data[0], data[1], data[2])
}

var (
	// VersionCmd reads the bridge firmware version.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"ver"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			if data, ok := monitor(c, client, bridge.RCAVersion); ok {
				ver := formatVersion(data)
				sh.Print(c, ver, ver)
			}
		}),
	}

	// PeerVersionCmd reads the peer version, available after setup.
	PeerVersionCmd = ishell.Cmd{
		Name:    "peer.version",
		Aliases: []string{"pver"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			if data, ok := monitor(c, client, bridge.RCAPeerVersion); ok {
				ver := formatVersion(data)
				sh.Print(c, ver, ver)
			}
		}),
	}

	// SetupCmd requests link initialization.
	SetupCmd = ishell.Cmd{
		Name:    "setup",
		Aliases: []string{"init"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			data, ok := monitor(c, client, setup.RCASetup)
			if !ok {
				return
			}
			if len(data) != 1 {
				c.Err(fmt.Errorf("unexpected setup reply: %s", sh.FormatBytes(data)))
				return
			}
			code := setup.Code(data[0])
			sh.Print(c, data[0], fmt.Sprintf("%d %s", data[0], code))
		}),
	}

	// MonitorCmd sends a monitor request.
	MonitorCmd = ishell.Cmd{
		Name:    "monitor",
		Aliases: []string{"m", "mon"},
		Help:    "RCA",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			rca, ok := parseRCA(c)
			if !ok {
				return
			}
			if data, ok := monitor(c, client, rca); ok {
				text := sh.FormatBytes(data)
				sh.Print(c, text, text)
			}
		}),
	}

	// ControlCmd sends a control request.
	ControlCmd = ishell.Cmd{
		Name:    "control",
		Aliases: []string{"c", "ctl"},
		Help:    "RCA BYTE...",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			rca, ok := parseRCA(c)
			if !ok {
				return
			}
			data, err := sh.ParseBytes(c.Args[1:])
			if err != nil {
				c.Err(fmt.Errorf("invalid BYTE: %v", err))
				return
			}
			if err = client.Control(rca, data...); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, "OK", "OK")
		}),
	}

	// TimersCmd reads the recorded phase timers.
	TimersCmd = ishell.Cmd{
		Name:    "timers",
		Aliases: []string{"t"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			var timers Timers
			points := []struct {
				rca   uint32
				words *[4]uint16
			}{
				{diag.RCAMonitorTimers1, &timers.MonitorAddress},
				{diag.RCAMonitorTimers2, &timers.MonitorOther},
				{diag.RCAControlTimers1, &timers.ControlAddress},
				{diag.RCAControlTimers2, &timers.ControlOther},
			}
			for _, pt := range points {
				data, ok := monitor(c, client, pt.rca)
				if !ok {
					return
				}
				words, err := diag.DecodeWords(data)
				if err != nil {
					c.Err(err)
					return
				}
				*pt.words = words
			}
			sh.Print(c, &timers, fmt.Sprintf(
				"monitor address %v\nmonitor length/reply/payload %v\ncontrol address %v\ncontrol length/payload %v",
				timers.MonitorAddress, timers.MonitorOther, timers.ControlAddress, timers.ControlOther))
		}),
	}

	// StatusCmd reads the link status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			data, ok := monitor(c, client, diag.RCAStatus)
			if !ok {
				return
			}
			status, err := diag.DecodeStatus(data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, &status, fmt.Sprintf(
				"lines=%05b ready=%v initialized=%v bindings=%d setup=%s forwarded=%d",
				status.Lines, status.Ready, status.Initialized,
				status.Bindings, setup.Code(status.SetupCode), status.Forwarded))
		}),
	}

	// TempCmd reads the ambient temperature.
	TempCmd = ishell.Cmd{
		Name:    "temp",
		Aliases: []string{"ambient"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			data, ok := monitor(c, client, bridge.RCAAmbient)
			if !ok {
				return
			}
			var sample sensor.Sample
			if len(data) != len(sample) {
				c.Err(fmt.Errorf("unexpected ambient reply: %s", sh.FormatBytes(data)))
				return
			}
			copy(sample[:], data)
			celsius := sample.Celsius()
			sh.Print(c, celsius, fmt.Sprintf("%.2f°C", celsius))
		}),
	}

	// SlaveCmd reads the slave built-in points.
	SlaveCmd = ishell.Cmd{
		Name:    "revision",
		Aliases: []string{"rev", "slave"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, client *sh.Client) {
			var info SlaveInfo
			data, ok := monitor(c, client, amb.RCASlaveRevision)
			if !ok {
				return
			}
			info.Revision = formatVersion(data)
			if data, ok = monitor(c, client, amb.RCASlaveErrors); !ok {
				return
			}
			if len(data) == 4 {
				info.Errors = binary.BigEndian.Uint16(data)
				info.LastError = data[3]
			}
			if data, ok = monitor(c, client, amb.RCASlaveTransactions); !ok {
				return
			}
			if len(data) == 4 {
				info.Transactions = binary.BigEndian.Uint32(data)
			}
			sh.Print(c, &info, fmt.Sprintf("revision %s errors %d (last 0x%02x) transactions %d",
				info.Revision, info.Errors, info.LastError, info.Transactions))
		}),
	}
)

func init() {
	sh.AddCmds(
		&VersionCmd,
		&PeerVersionCmd,
		&SetupCmd,
		&MonitorCmd,
		&ControlCmd,
		&TimersCmd,
		&StatusCmd,
		&TempCmd,
		&SlaveCmd,
	)
}
