package board

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/firmata.go/pkg/bridge"
	"github.com/robotalks/firmata.go/pkg/cli/sh"
)

var (
	// FirmwareCmd queries the firmware.
	FirmwareCmd = ishell.Cmd{
		Name:    "firmware",
		Aliases: []string{"fw"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, bridge.OpQuery, nil)
		}),
	}

	// PinStateCmd queries the state of a pin.
	PinStateCmd = ishell.Cmd{
		Name:    "pinstate",
		Aliases: []string{"ps"},
		Help:    "PIN",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PIN required"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("Invalid PIN: %v", err))
				return
			}
			if pin := sh.BoardFrom(c).Pin(n); pin != nil {
				if st, ok := pin.ReportedState(); ok {
					c.Printf("last reported: %s state=%d\n", st.Mode, st.State)
				}
			}
			sh.DoCommand(c, bridge.OpQuery, map[string]interface{}{"pin": n})
		}),
	}

	// SamplingCmd sets the sampling interval.
	SamplingCmd = ishell.Cmd{
		Name:    "sampling",
		Aliases: []string{"si"},
		Help:    "INTERVAL(ms)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("INTERVAL required"))
				return
			}
			val, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(fmt.Errorf("Invalid INTERVAL: %v", err))
				return
			}
			sh.DoCommand(c, bridge.OpSampling, map[string]interface{}{"interval_ms": val})
		}),
	}

	// ResetCmd resets the firmware.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, bridge.OpReset, nil)
		}),
	}
)

func init() {
	sh.AddCmds(
		&FirmwareCmd,
		&PinStateCmd,
		&SamplingCmd,
		&ResetCmd,
	)
}
