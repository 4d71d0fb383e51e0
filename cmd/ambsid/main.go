package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net"
	"net/http"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/ambsi.go/pkg/amb"
	"github.com/robotalks/ambsi.go/pkg/bridge"
	"github.com/robotalks/ambsi.go/pkg/can/mqtt"
	"github.com/robotalks/ambsi.go/pkg/can/stream"
	"github.com/robotalks/ambsi.go/pkg/can/websocket"
	"github.com/robotalks/ambsi.go/pkg/env"
	fx "github.com/robotalks/ambsi.go/pkg/framework"
	"github.com/robotalks/ambsi.go/pkg/link"
	"github.com/robotalks/ambsi.go/pkg/sensor"
)

// Meta is published retained on node/meta.
type Meta struct {
	ID      string `json:"id"`
	Node    byte   `json:"node"`
	Version string `json:"version"`
}

func init() {
	bridge.SetupFlags()
}

func newLines(conf *bridge.Config) link.Lines {
	if !conf.Sim {
		glog.Exit("parallel lines hardware isn't available, use -sim")
	}
	return newSimPeer()
}

func newSensor(conf *bridge.Config) sensor.Sensor {
	if conf.SensorPath != "" {
		return sensor.NewW1Sensor(conf.SensorPath)
	}
	// 25°C, count remain 12, 16 counts per degree.
	return sensor.Fixed{50, 0, 12, 16}
}

func serveSerial(conf *bridge.Config, loop *fx.Loop) {
	port, err := serial.Open(conf.SerialPort, &serial.Mode{BaudRate: conf.SerialBaud})
	if err != nil {
		glog.Exitf("open serial %s: %v", conf.SerialPort, err)
	}
	loop.Add(bridge.NewServer("serial", stream.New(port)))
}

func serveMQTT(conf *bridge.Config, loop *fx.Loop, b *bridge.Bridge) {
	meta := &Meta{ID: conf.BridgeID(), Node: conf.NodeAddress(), Version: conf.Version}
	ep, err := mqtt.NewEndpoint(conf.MQTTBrokerURL, conf.NodeAddress(),
		env.ClientID(meta.ID, meta.Node), meta)
	if err != nil {
		glog.Exitf("mqtt %s: %v", conf.MQTTBrokerURL, err)
	}
	loop.AddRunnable(fx.NamedRun("mqtt", fx.RunFunc(ep.Run)))
	loop.Add(bridge.NewServer("mqtt", ep), &bridge.StatusPublisher{Bridge: b, Publish: ep.PublishStatus})
}

func serveWebsocket(conf *bridge.Config, loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
		ln, err := net.Listen("tcp", conf.WebsocketAddr)
		if err != nil {
			return err
		}
		ctl := fx.LoopCtlFrom(ctx)
		mux := http.NewServeMux()
		mux.Handle("/", websocket.Handler(func(rw *websocket.ReadWriter) {
			srv := bridge.NewServer("websocket", rw)
			srv.Loop = ctl
			srv.Run(ctx)
		}))
		glog.Infof("websocket listening on %s", ln.Addr())
		server := &http.Server{Handler: mux}
		return fx.RunWithContextCloser(ctx, server, func() error {
			return server.Serve(ln)
		})
	})))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := bridge.NewConfig()
	slave := amb.NewSlave(conf.NodeAddress())
	b, err := bridge.New(conf, newLines(conf), slave, newSensor(conf))
	if err != nil {
		glog.Exitf("bridge: %v", err)
	}

	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(b, bridge.NewDispatcher(slave))
	if conf.MQTTBrokerURL != "" {
		serveMQTT(conf, loop, b)
	}
	if conf.SerialPort != "" {
		serveSerial(conf, loop)
	}
	if conf.WebsocketAddr != "" {
		serveWebsocket(conf, loop)
	}

	glog.Infof("node %d base address 0x%08x", conf.Node, slave.BaseAddress())
	if err := fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Exit(err)
	}
}
