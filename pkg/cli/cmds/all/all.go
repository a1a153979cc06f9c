// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/firmata.go/pkg/cli/cmds/board"
	_ "github.com/robotalks/firmata.go/pkg/cli/cmds/pins"
)
