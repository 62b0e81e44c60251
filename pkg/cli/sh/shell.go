// Package sh provides the interactive client shell.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/msgs"
	env "github.com/robotalks/zwproxy/pkg/env/connector"
	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/zwave"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Loop   *ConnLoop
}

// ConnLoop is a running loop with a proxy connection.
type ConnLoop struct {
	Ctx    context.Context
	Cancel func()
	Ref    api.ProxyRef
	Loop   *fx.Loop
	Conn   api.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// CommandTimeout limits the wait for the reply of a command.
var CommandTimeout = 2 * time.Second

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
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
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
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
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Loop == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints ProxyInfo into friendly string for display.
func FormatInfo(info api.ProxyInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Link != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Link)
	}
	return w.String()
}

// FormatMsg prints a message received from the proxy.
func FormatMsg(msg fx.Message) string {
	switch m := msg.(type) {
	case *msgs.ZWaveFrame:
		if len(m.Data) == 1 {
			return "<< " + zwave.ControlName(m.Data[0])
		}
		if f, err := zwave.ParseFrame(m.Data); err == nil {
			return fmt.Sprintf("<< [%s] %s", zwave.FormatHex(m.Data, ' '), f)
		}
		return fmt.Sprintf("<< [%s] %q", zwave.FormatHex(m.Data, ' '), m.Data)
	case *msgs.ZWaveStatusEvent:
		return "status " + FormatStatus(&m.ZWaveStatus)
	case *msgs.ZWaveStatus:
		return FormatStatus(m)
	}
	if sm, ok := msg.(msgs.SerializableMessage); ok {
		return fmt.Sprintf("%s %s",
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			sm.Serializable().String())
	}
	return fmt.Sprintf("%T", msg)
}

// FormatStatus prints a status.
func FormatStatus(st *msgs.ZWaveStatus) string {
	return fmt.Sprintf("home=%s features=0x%08x bootloader=%v subscribed=%v",
		st.HomeIDString(), st.FeatureFlags, st.InBootloader, st.Subscribed)
}

func (s *Shell) printMsg(msg fx.Message) {
	if s.OutputJSON {
		if sm, ok := msg.(msgs.SerializableMessage); ok {
			if out, err := json.Marshal(sm.Serializable()); err == nil {
				s.Shell.Println(string(out))
				return
			}
		}
	}
	s.Shell.Println(FormatMsg(msg))
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, msg fx.Message) (err error) {
	s := ShellFrom(c)
	if s.Loop == nil {
		err = fmt.Errorf("not connected")
		c.Err(err)
		return
	}
	f := s.Loop.Conn.DoCommand(msg)
	select {
	case res := <-f.ResultChan():
		if res.Err != nil {
			c.Err(res.Err)
			return res.Err
		}
		s.printMsg(res.Msg)
	case <-time.After(CommandTimeout):
		c.Err(fmt.Errorf("command timeout"))
		return context.DeadlineExceeded
	}
	return nil
}

// SendEvent sends an event, e.g. a frame, to the proxy.
func SendEvent(c *ishell.Context, msg fx.Message) error {
	s := ShellFrom(c)
	if s.Loop == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	if err := s.Loop.Conn.SendEvent(msg); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverProxies discovers proxies.
func (s *Shell) DiscoverProxies() (api.Connector, []api.ProxyInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return connector, nil, err
	}
	return connector, infoList, nil
}

// SelectProxy discovers proxies and asks for a choice.
func (s *Shell) SelectProxy() (*api.ProxyInfo, error) {
	_, infoList, err := s.DiscoverProxies()
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 proxies discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the proxy with ref. Messages from the proxy are
// printed as they arrive.
func (s *Shell) Connect(ref api.ProxyRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	connLoop := &ConnLoop{Ref: ref}
	connLoop.Ctx, connLoop.Cancel = context.WithCancel(context.Background())
	if connLoop.Conn, err = connector.Connect(connLoop.Ctx, ref); err != nil {
		connLoop.Cancel()
		return err
	}
	connLoop.Loop = fx.NewLoop()
	if adder, ok := connLoop.Conn.(fx.LoopAdder); ok {
		connLoop.Loop.Add(adder)
	}
	connLoop.Loop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			mctx.MessageTaken()
			s.printMsg(mctx.CurrentMessage())
		}))
		return nil
	}))
	if s.Loop != nil {
		s.Disconnect()
	}
	s.Loop = connLoop
	go func() {
		if err := connLoop.Loop.Run(connLoop.Ctx); err != nil && err != context.Canceled {
			glog.Warningf("connection %s: %v", ref.Name(), err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// Disconnect disconnects current proxy.
func (s *Shell) Disconnect() {
	if s.Loop != nil {
		s.Loop.Cancel()
		if closer, ok := s.Loop.Conn.(io.Closer); ok {
			closer.Close()
		}
		s.Loop = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		ref := s.Config.Ref
		if !ref.IsValid() {
			info, err := s.SelectProxy()
			if err != nil {
				glog.Exitf("discover failed: %v", err)
			}
			if info != nil {
				ref = info.Ref
			}
		}
		if ref.IsValid() {
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", ref.Name())
			}
			if err := s.Connect(ref); err != nil {
				glog.Exitf("connect %q failed: %v", ref.Name(), err)
			}
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// DiscoverCmd discovers proxies.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			_, infoList, err := s.DiscoverProxies()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []api.ProxyInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No proxies found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a proxy.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref api.ProxyRef
			if len(c.Args) >= 1 {
				ref.ID = c.Args[0]
			} else {
				info, err := s.SelectProxy()
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no proxy discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects current proxy.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
