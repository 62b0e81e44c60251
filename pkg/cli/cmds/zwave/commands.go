// Package zwave provides the shell commands talking to the proxy.
package zwave

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/zwproxy/pkg/api/msgs"
	"github.com/robotalks/zwproxy/pkg/cli/sh"
	"github.com/robotalks/zwproxy/pkg/zwave"
)

func requestCmd(name string, aliases []string, typ uint32) ishell.Cmd {
	return ishell.Cmd{
		Name:    name,
		Aliases: aliases,
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.ZWaveRequest{Type: typ})
		}),
	}
}

// ParseByte parses a byte in hex, with or without 0x.
func ParseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

// BuildCommand builds a data frame from TYPE CMD [PAYLOAD...].
func BuildCommand(args []string) ([]byte, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("TYPE and CMD required")
	}
	var typ byte
	switch strings.ToLower(args[0]) {
	case "req", "request":
		typ = zwave.TypeRequest
	case "res", "response":
		typ = zwave.TypeResponse
	default:
		var err error
		if typ, err = ParseByte(args[0]); err != nil {
			return nil, err
		}
	}
	cmd, err := ParseByte(args[1])
	if err != nil {
		return nil, err
	}
	payload, err := zwave.ParseHex(strings.Join(args[2:], ""))
	if err != nil {
		return nil, err
	}
	return zwave.EncodeFrame(typ, cmd, payload)
}

var (
	// SubscribeCmd subscribes frames from the module.
	SubscribeCmd = requestCmd("subscribe", []string{"sub"}, msgs.ZWaveRequestSubscribe)
	// UnsubscribeCmd drops the subscription.
	UnsubscribeCmd = requestCmd("unsubscribe", []string{"unsub"}, msgs.ZWaveRequestUnsubscribe)
	// StatusCmd queries the proxy status.
	StatusCmd = requestCmd("status", []string{"st"}, msgs.ZWaveRequestQueryStatus)
	// ResetCmd drops the partial frame in the proxy.
	ResetCmd = requestCmd("reset", nil, msgs.ZWaveRequestResetCache)
	// ExitBootloaderCmd returns the proxy to normal framing.
	ExitBootloaderCmd = requestCmd("exit-bootloader", []string{"exit-bl"}, msgs.ZWaveRequestExitBootloader)

	// SendCmd sends raw bytes to the module.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "HEX",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			data, err := zwave.ParseHex(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) == 0 {
				c.Err(fmt.Errorf("nothing to send"))
				return
			}
			sh.SendEvent(c, &msgs.ZWaveFrame{Data: data})
		}),
	}

	// CommandCmd builds a data frame and sends it to the module.
	CommandCmd = ishell.Cmd{
		Name:    "cmd",
		Help:    "TYPE CMD [HEX]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			data, err := BuildCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf(">> [%s]\n", zwave.FormatHex(data, ' '))
			sh.SendEvent(c, &msgs.ZWaveFrame{Data: data})
		}),
	}

	// AckCmd sends an ACK to the module.
	AckCmd = ishell.Cmd{
		Name: "ack",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.SendEvent(c, &msgs.ZWaveFrame{Data: []byte{zwave.ACK}})
		}),
	}
)

func init() {
	sh.AddCmds(
		&SubscribeCmd,
		&UnsubscribeCmd,
		&StatusCmd,
		&ResetCmd,
		&ExitBootloaderCmd,
		&SendCmd,
		&CommandCmd,
		&AckCmd,
	)
}
