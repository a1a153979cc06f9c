package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/firmata.go/pkg/bridge"
	"github.com/robotalks/firmata.go/pkg/env"
	"github.com/robotalks/firmata.go/pkg/firmata"
	fx "github.com/robotalks/firmata.go/pkg/framework"
	"github.com/robotalks/firmata.go/pkg/transport/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *BoardConn
}

// BoardConn is an open board polled in the background.
type BoardConn struct {
	Ctx    context.Context
	Cancel func()
	Board  *firmata.Board
	Runner *fx.Runner
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&InfoCmd,
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

// BoardFrom gets the connected board from ishell context.
func BoardFrom(c *ishell.Context) *firmata.Board {
	if conn := ShellFrom(c).Conn; conn != nil {
		return conn.Board
	}
	return nil
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatPin prints the state of a pin for display.
func FormatPin(pin *firmata.Pin) string {
	var w strings.Builder
	fmt.Fprintf(&w, "%s: %s", pin, pin.Mode())
	if pin.IsTaken() {
		w.WriteString(" taken")
	}
	if pin.IsReporting() {
		w.WriteString(" reporting")
	}
	if r, err := pin.Read(); err == nil && r.Valid {
		fmt.Fprintf(&w, " = %v", r.Value)
	}
	return w.String()
}

// DoCommand applies a command on the connected board and prints the result.
func DoCommand(c *ishell.Context, op string, args map[string]interface{}) error {
	b := BoardFrom(c)
	if b == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	cmd, err := bridge.NewCommand(op, args)
	if err != nil {
		c.Err(err)
		return err
	}
	pin, err := cmd.Apply(b)
	if ShellFrom(c).OutputJSON {
		payload, perr := bridge.EncodeEvent(bridge.ResultEvent(cmd, err))
		if perr == nil {
			var out string
			if out, perr = bridge.EventJSON(payload); perr == nil {
				c.Println(out)
			}
		}
		if perr != nil {
			c.Err(perr)
		}
		return err
	}
	if err != nil {
		c.Err(err)
		return err
	}
	if pin != nil {
		c.Println(FormatPin(pin))
		return nil
	}
	c.Println("OK")
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the board on port, empty to use the configured port.
func (s *Shell) Connect(port string) error {
	conf := *s.Config
	if port != "" {
		conf.Port = port
	}
	b, err := conf.OpenBoard()
	if err != nil {
		return err
	}
	conn := &BoardConn{Board: b}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	conn.Runner = fx.NewRunnerWith(conn.Ctx)
	conn.Runner.Go(fx.NamedRun("poller", firmata.NewPoller(b)))
	b.OnString(func(b *firmata.Board, str string) {
		s.Shell.Printf("%s: %s\n", b.Name, str)
	})
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conf.Port))
	return nil
}

// Disconnect closes the current board.
func (s *Shell) Disconnect() error {
	conn := s.Conn
	if conn == nil {
		return nil
	}
	s.Conn = nil
	s.Shell.SetPrompt(unconnectedPrompt)
	err := conn.Board.Close()
	conn.Cancel()
	return (&fx.AggregatedError{}).Add(err, conn.Runner.Wait()).Aggregate()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port, err)
		}
	}
	defer s.Disconnect()

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

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ports, err := serial.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// ConnectCmd opens a board.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var port string
			if len(c.Args) > 0 {
				port = c.Args[0]
			} else if s.Config.Port == "" {
				ports, err := serial.ListPorts()
				if err != nil {
					c.Err(err)
					return
				}
				switch {
				case len(ports) == 0:
					c.Err(fmt.Errorf("no serial ports found"))
					return
				case len(ports) == 1:
					port = ports[0]
				case !s.Interactive:
					c.Err(fmt.Errorf("more than 1 serial ports found in non-interactive mode"))
					return
				default:
					port = ports[s.Shell.MultiChoice(ports, "Which one to connect?")]
				}
			}
			if err := s.Connect(port); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Disconnect(); err != nil {
				c.Err(err)
			}
		},
	}

	// InfoCmd shows the board.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			b := BoardFrom(c)
			if ShellFrom(c).OutputJSON {
				payload, err := bridge.EncodeEvent(bridge.InfoEvent(b))
				if err == nil {
					var out string
					if out, err = bridge.EventJSON(payload); err == nil {
						c.Println(out)
					}
				}
				if err != nil {
					c.Err(err)
				}
				return
			}
			c.Println(b)
			if fw, ok := b.Firmware(); ok {
				c.Printf("Firmware: %s\n", fw)
			}
			if v, ok := b.ProtocolVersion(); ok {
				c.Printf("Protocol: %s\n", v)
			}
			for _, pin := range b.Pins() {
				modes := make([]string, 0, len(pin.SupportedModes()))
				for _, m := range pin.SupportedModes() {
					modes = append(modes, m.String())
				}
				c.Printf("%s [%s]\n", FormatPin(pin), strings.Join(modes, " "))
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
