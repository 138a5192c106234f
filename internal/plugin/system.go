package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/Norgate-AV/autobuild/internal/execute"
)

// System is a library provided by the host; installing it does nothing
type System struct {
	flags []string
	libs  []string
	incs  []string
}

func (s *System) Install(context.Context, string) error { return nil }

func (s *System) Flags() []string { return s.flags }
func (s *System) Libs() []string  { return s.libs }
func (s *System) Incs() []string  { return s.incs }

// ConfigTool is a host library whose link line is reported by a tool
// such as fltk-config. The tool runs once per plugin instance.
type ConfigTool struct {
	Tool string
	Args []string

	env  *Env
	libs []string
	done bool
}

func (c *ConfigTool) Install(ctx context.Context, _ string) error {
	if c.done {
		return nil
	}

	res, err := c.env.Executor.Execute(ctx, &execute.Cmd{Path: c.Tool, Args: c.Args})
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", c.Tool, err)
	}

	c.libs = strings.Fields(string(res.Stdout))
	c.done = true

	return nil
}

func (c *ConfigTool) Flags() []string { return nil }
func (c *ConfigTool) Libs() []string  { return c.libs }
func (c *ConfigTool) Incs() []string  { return nil }
