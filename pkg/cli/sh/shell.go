// Package sh provides the interactive operator shell of bridge nodes.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ambsi.go/pkg/can"
	"github.com/robotalks/ambsi.go/pkg/can/mqtt"
	"github.com/robotalks/ambsi.go/pkg/can/websocket"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *Config
	Conn   *Conn
}

// Conn is a running connection to a bridge node.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Client *Client
}

const shellKey = "$shell"

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&NodeCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("[none] > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, client *Client)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c, s.Conn.Client)
	}
}

// Print prints v as JSON when OutputJSON, or text otherwise.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Connect connects the node over websocket or MQTT.
func (s *Shell) Connect(node byte) error {
	conn := &Conn{}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	var rw can.ReadWriter
	if s.Config.WebsocketURL != "" {
		wsrw, err := websocket.Dial(s.Config.WebsocketURL, "http://localhost/")
		if err != nil {
			conn.Cancel()
			return err
		}
		go func() {
			<-conn.Ctx.Done()
			wsrw.Close()
		}()
		rw = wsrw
	} else {
		q, err := mqtt.NewQueueFromURL(s.Config.MQTTBrokerURL)
		if err != nil {
			conn.Cancel()
			return err
		}
		if err = q.Connect(); err != nil {
			conn.Cancel()
			return err
		}
		mqttrw := mqtt.NewReadWriter(q).ForClient(node)
		go func() {
			mqttrw.Run(conn.Ctx)
			q.Close()
		}()
		rw = mqttrw
	}
	conn.Client = NewClient(rw, node, s.Config.Timeout)
	go conn.Client.Run(conn.Ctx)
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("[node %d] > ", node))
	return nil
}

// Disconnect disconnects current node.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt("[none] > ")
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Connect(byte(s.Config.Node)); err != nil {
		log.Fatalf("connect node %d failed: %v", s.Config.Node, err)
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// FormatBytes formats a payload as hex.
func FormatBytes(data []byte) string {
	strs := make([]string, len(data))
	for n, b := range data {
		strs[n] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(strs, " ")
}

// NodeInfo is the retained meta published by a bridge node.
type NodeInfo struct {
	Node byte            `json:"node"`
	Meta json.RawMessage `json:"meta"`
}

// Discover collects retained meta of bridge nodes on the broker.
func (s *Shell) Discover(wait time.Duration) ([]NodeInfo, error) {
	q, err := mqtt.NewQueueFromURL(s.Config.MQTTBrokerURL)
	if err != nil {
		return nil, err
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	defer q.Close()
	var lock sync.Mutex
	nodes := make(map[byte]json.RawMessage)
	sub := q.Sub("+"+mqtt.TopicMeta, func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		node, err := ParseUint(strings.TrimSuffix(topic, mqtt.TopicMeta), 8)
		if err != nil {
			return
		}
		lock.Lock()
		nodes[byte(node)] = append(json.RawMessage(nil), payload...)
		lock.Unlock()
	})
	time.Sleep(wait)
	sub.Close()
	lock.Lock()
	defer lock.Unlock()
	infoList := make([]NodeInfo, 0, len(nodes))
	for node, meta := range nodes {
		infoList = append(infoList, NodeInfo{Node: node, Meta: meta})
	}
	sort.Slice(infoList, func(i, j int) bool { return infoList[i].Node < infoList[j].Node })
	return infoList, nil
}

// DiscoverCmd lists bridge nodes on the broker.
var DiscoverCmd = ishell.Cmd{
	Name:    "discover",
	Aliases: []string{"list", "l"},
	Help:    "",
	Func: func(c *ishell.Context) {
		s := ShellFrom(c)
		infoList, err := s.Discover(s.Config.Timeout)
		if err != nil {
			c.Err(err)
			return
		}
		if s.OutputJSON {
			out, err := json.Marshal(infoList)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(out))
			return
		}
		if len(infoList) == 0 {
			c.Println("No nodes found")
			return
		}
		for _, info := range infoList {
			c.Printf("%d: %s\n", info.Node, string(info.Meta))
		}
	},
}

// NodeCmd switches the connected node.
var NodeCmd = ishell.Cmd{
	Name:    "node",
	Aliases: []string{"n"},
	Help:    "NODE",
	Func: func(c *ishell.Context) {
		s := ShellFrom(c)
		if len(c.Args) < 1 {
			if s.Conn != nil {
				c.Println(s.Conn.Client.Node)
			}
			return
		}
		node, err := ParseUint(c.Args[0], 8)
		if err != nil {
			c.Err(fmt.Errorf("invalid NODE: %v", err))
			return
		}
		if err := s.Connect(byte(node)); err != nil {
			c.Err(err)
		}
	},
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).Run(flag.Args()...)
}
