package bridge

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/golang/protobuf/jsonpb"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

// Command is a request to operate the board, received on
// <id>/cmd/<op> with a JSON object payload.
type Command struct {
	Op   string
	Args *structpb.Struct
}

// Supported operations and their arguments.
const (
	OpPin      = "pin"      // spec
	OpWrite    = "write"    // pin, value
	OpMode     = "mode"     // pin, mode
	OpReport   = "report"   // pin, enable
	OpServo    = "servo"    // pin, [min, max, angle]
	OpSampling = "sampling" // interval_ms
	OpQuery    = "query"    // [pin]
	OpReset    = "reset"
)

// NewCommand creates a Command from arguments of type string, bool,
// int or float64.
func NewCommand(op string, args map[string]interface{}) (*Command, error) {
	cmd := &Command{Op: op, Args: &structpb.Struct{Fields: make(map[string]*structpb.Value)}}
	for name, arg := range args {
		switch v := arg.(type) {
		case string:
			cmd.Args.Fields[name] = stringValue(v)
		case bool:
			cmd.Args.Fields[name] = boolValue(v)
		case int:
			cmd.Args.Fields[name] = numberValue(float64(v))
		case float64:
			cmd.Args.Fields[name] = numberValue(v)
		default:
			return nil, fmt.Errorf("%s: unsupported argument %q of type %T", op, name, arg)
		}
	}
	return cmd, nil
}

// DecodeCommand decodes the JSON payload of a command.
func DecodeCommand(op string, payload []byte) (*Command, error) {
	cmd := &Command{Op: op, Args: &structpb.Struct{}}
	if len(bytes.TrimSpace(payload)) == 0 {
		return cmd, nil
	}
	if err := jsonpb.Unmarshal(bytes.NewReader(payload), cmd.Args); err != nil {
		return nil, fmt.Errorf("invalid %s command: %w", op, err)
	}
	return cmd, nil
}

// Apply executes the command on the board. It returns the pin affected,
// if any. write, mode and report only operate on pins taken by a pin
// command.
func (c *Command) Apply(b *firmata.Board) (*firmata.Pin, error) {
	switch c.Op {
	case OpPin:
		spec, err := c.str("spec")
		if err != nil {
			return nil, err
		}
		return b.GetPinString(spec)
	case OpWrite:
		pin, err := c.takenPin(b)
		if err != nil {
			return nil, err
		}
		v, err := c.number("value")
		if err != nil {
			return nil, err
		}
		return pin, pin.Write(v)
	case OpMode:
		pin, err := c.takenPin(b)
		if err != nil {
			return nil, err
		}
		name, err := c.str("mode")
		if err != nil {
			return nil, err
		}
		mode, err := firmata.ParseMode(name)
		if err != nil {
			return nil, err
		}
		return pin, pin.SetMode(mode)
	case OpReport:
		pin, err := c.takenPin(b)
		if err != nil {
			return nil, err
		}
		if c.boolean("enable", true) {
			return pin, pin.EnableReporting()
		}
		return pin, pin.DisableReporting()
	case OpServo:
		n, err := c.integer("pin")
		if err != nil {
			return nil, err
		}
		settings := firmata.DefaultServoConfig
		if v, ok := c.optNumber("min"); ok {
			settings.MinPulse = int(v)
		}
		if v, ok := c.optNumber("max"); ok {
			settings.MaxPulse = int(v)
		}
		if v, ok := c.optNumber("angle"); ok {
			settings.Angle = v
		}
		return b.Pin(n), b.ServoConfig(n, settings)
	case OpSampling:
		ms, err := c.number("interval_ms")
		if err != nil {
			return nil, err
		}
		return nil, b.SetSamplingInterval(time.Duration(ms * float64(time.Millisecond)))
	case OpQuery:
		if _, ok := c.optNumber("pin"); ok {
			n, err := c.integer("pin")
			if err != nil {
				return nil, err
			}
			return nil, b.QueryPinState(n)
		}
		return nil, b.QueryFirmware()
	case OpReset:
		return nil, b.SystemReset()
	}
	return nil, fmt.Errorf("unknown command %q", c.Op)
}

func (c *Command) pin(b *firmata.Board) (*firmata.Pin, error) {
	n, err := c.integer("pin")
	if err != nil {
		return nil, err
	}
	pin := b.Pin(n)
	if pin == nil {
		return nil, fmt.Errorf("pin %d out of range", n)
	}
	return pin, nil
}

// takenPin only admits pins taken with the pin command.
func (c *Command) takenPin(b *firmata.Board) (*firmata.Pin, error) {
	pin, err := c.pin(b)
	if err != nil {
		return nil, err
	}
	if !pin.IsTaken() {
		return nil, fmt.Errorf("%s: %s not taken, use the %s command first", c.Op, pin, OpPin)
	}
	return pin, nil
}

func (c *Command) field(name string) *structpb.Value {
	if c.Args == nil {
		return nil
	}
	return c.Args.Fields[name]
}

func (c *Command) optNumber(name string) (float64, bool) {
	if v, ok := c.field(name).GetKind().(*structpb.Value_NumberValue); ok {
		return v.NumberValue, true
	}
	return 0, false
}

func (c *Command) number(name string) (float64, error) {
	v, ok := c.optNumber(name)
	if !ok {
		return 0, fmt.Errorf("%s: number %q required", c.Op, name)
	}
	return v, nil
}

func (c *Command) integer(name string) (int, error) {
	v, err := c.number(name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s: %q must be an integer", c.Op, name)
	}
	return int(v), nil
}

func (c *Command) str(name string) (string, error) {
	if v, ok := c.field(name).GetKind().(*structpb.Value_StringValue); ok {
		return v.StringValue, nil
	}
	return "", fmt.Errorf("%s: string %q required", c.Op, name)
}

func (c *Command) boolean(name string, def bool) bool {
	if v, ok := c.field(name).GetKind().(*structpb.Value_BoolValue); ok {
		return v.BoolValue
	}
	return def
}
