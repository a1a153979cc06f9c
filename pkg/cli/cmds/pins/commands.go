package pins

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/firmata.go/pkg/bridge"
	"github.com/robotalks/firmata.go/pkg/cli/sh"
)

var (
	// PinCmd takes a pin by spec.
	PinCmd = ishell.Cmd{
		Name:    "pin",
		Aliases: []string{"p"},
		Help:    "SPEC (e.g. d:13:o, a:0:i)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("SPEC required"))
				return
			}
			sh.DoCommand(c, bridge.OpPin, map[string]interface{}{"spec": c.Args[0]})
		}),
	}

	// ReadCmd prints the last value of pins.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[PIN...]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			b := sh.BoardFrom(c)
			if len(c.Args) == 0 {
				for _, pin := range b.Pins() {
					if pin.IsTaken() || pin.IsReporting() {
						c.Println(sh.FormatPin(pin))
					}
				}
				return
			}
			for _, arg := range c.Args {
				n, err := parsePin(arg)
				if err != nil {
					c.Err(err)
					return
				}
				pin := b.Pin(n)
				if pin == nil {
					c.Err(fmt.Errorf("pin %d out of range", n))
					return
				}
				c.Println(sh.FormatPin(pin))
			}
		}),
	}

	// WriteCmd writes a value to a pin.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "PIN VALUE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("PIN and VALUE required"))
				return
			}
			n, err := parsePin(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			val, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil {
				c.Err(fmt.Errorf("Invalid VALUE: %v", err))
				return
			}
			sh.DoCommand(c, bridge.OpWrite, map[string]interface{}{"pin": n, "value": val})
		}),
	}

	// ModeCmd changes the mode of a pin.
	ModeCmd = ishell.Cmd{
		Name:    "mode",
		Aliases: []string{"m"},
		Help:    "PIN MODE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("PIN and MODE required"))
				return
			}
			n, err := parsePin(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, bridge.OpMode, map[string]interface{}{"pin": n, "mode": c.Args[1]})
		}),
	}

	// ReportCmd switches reporting of a pin.
	ReportCmd = ishell.Cmd{
		Name:    "report",
		Aliases: []string{"rep"},
		Help:    "PIN on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PIN required"))
				return
			}
			n, err := parsePin(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			enable := true
			if len(c.Args) > 1 {
				switch c.Args[1] {
				case "on", "true", "1":
				case "off", "false", "0":
					enable = false
				default:
					c.Err(fmt.Errorf("Invalid switch %q", c.Args[1]))
					return
				}
			}
			sh.DoCommand(c, bridge.OpReport, map[string]interface{}{"pin": n, "enable": enable})
		}),
	}

	// ServoCmd configures a servo.
	ServoCmd = ishell.Cmd{
		Name:    "servo",
		Aliases: []string{"sv"},
		Help:    "PIN [MIN_PULSE MAX_PULSE [ANGLE]]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PIN required"))
				return
			}
			n, err := parsePin(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			args := map[string]interface{}{"pin": n}
			for i, name := range []string{"min", "max", "angle"} {
				if len(c.Args) <= i+1 {
					break
				}
				val, err := strconv.ParseFloat(c.Args[i+1], 64)
				if err != nil {
					c.Err(fmt.Errorf("Invalid %s: %v", name, err))
					return
				}
				args[name] = val
			}
			sh.DoCommand(c, bridge.OpServo, args)
		}),
	}
)

func parsePin(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("Invalid PIN: %v", err)
	}
	return n, nil
}

func init() {
	sh.AddCmds(
		&PinCmd,
		&ReadCmd,
		&WriteCmd,
		&ModeCmd,
		&ReportCmd,
		&ServoCmd,
	)
}
