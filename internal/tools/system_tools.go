package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// TimeTool reports the current time and date.
type TimeTool struct {
	Now Clock
}

// Descriptor returns the tool registration record.
func (t *TimeTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "time.now",
		Description: "Report the current time and date",
		Tier:        TierSafe,
		Params: []Param{
			{Name: "format", Type: "string", Description: "time, date, or full", Default: "full"},
		},
	}
}

// Execute implements Handler.
func (t *TimeTool) Execute(_ context.Context, params map[string]string) Result {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	n := now()

	switch params["format"] {
	case "time":
		return Result{Success: true, Text: fmt.Sprintf("It's %s.", n.Format("3:04 PM"))}
	case "date":
		return Result{Success: true, Text: fmt.Sprintf("Today is %s.", n.Format("Monday, January 2, 2006"))}
	default:
		return Result{Success: true, Text: fmt.Sprintf("It's %s on %s.", n.Format("3:04 PM"), n.Format("Monday, January 2, 2006"))}
	}
}

// SystemInfoTool reports host and runtime facts.
type SystemInfoTool struct{}

// Descriptor returns the tool registration record.
func (t *SystemInfoTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "system.info",
		Description: "Report host platform, CPU count and Go runtime",
		Tier:        TierSafe,
	}
}

// Execute implements Handler.
func (t *SystemInfoTool) Execute(_ context.Context, _ map[string]string) Result {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	text := fmt.Sprintf("Running on %s, %s/%s with %d CPUs.",
		host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	return Result{Success: true, Text: text}
}

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct{}

// Descriptor returns the tool registration record.
func (t *CalculatorTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "calc.eval",
		Description: "Evaluate an arithmetic expression",
		Tier:        TierSafe,
		Params: []Param{
			{Name: "expression", Type: "string", Description: "arithmetic expression", Required: true},
		},
	}
}

// Execute implements Handler.
func (t *CalculatorTool) Execute(_ context.Context, params map[string]string) Result {
	v, err := evalExpression(params["expression"])
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "I couldn't work that out."}
	}
	return Result{Success: true, Text: fmt.Sprintf("That comes to %s.", formatNumber(v))}
}

// VolumeTool nudges the system output volume up or down.
type VolumeTool struct {
	Direction string // "up" or "down"
	Step      int    // percent per invocation
}

// Descriptor returns the tool registration record.
func (t *VolumeTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "volume." + t.Direction,
		Description: "Adjust system output volume " + t.Direction,
		Tier:        TierModerate,
	}
}

// Execute implements Handler.
func (t *VolumeTool) Execute(ctx context.Context, _ map[string]string) Result {
	step := t.Step
	if step <= 0 {
		step = 10
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		delta := step
		if t.Direction == "down" {
			delta = -step
		}
		script := fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) + %d)", delta)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		sign := "+"
		if t.Direction == "down" {
			sign = "-"
		}
		cmd = exec.CommandContext(ctx, "amixer", "-q", "set", "Master", fmt.Sprintf("%d%%%s", step, sign))
	}

	if err := cmd.Run(); err != nil {
		return Result{Success: false, Err: err.Error(), Text: "I couldn't change the volume."}
	}
	return Result{Success: true, Text: fmt.Sprintf("Volume %s.", t.Direction)}
}

// OpenAppTool launches a desktop application by name.
type OpenAppTool struct{}

// Descriptor returns the tool registration record.
func (t *OpenAppTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "app.open",
		Description: "Launch an application by name",
		Tier:        TierModerate,
		Params: []Param{
			{Name: "app", Type: "string", Description: "application name", Required: true},
		},
	}
}

// Execute implements Handler.
func (t *OpenAppTool) Execute(ctx context.Context, params map[string]string) Result {
	app := strings.TrimSpace(params["app"])

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", app)
	default:
		cmd = exec.CommandContext(ctx, app)
	}

	if err := cmd.Start(); err != nil {
		return Result{Success: false, Err: err.Error(), Text: fmt.Sprintf("I couldn't open %s.", app)}
	}
	return Result{Success: true, Text: fmt.Sprintf("Opening %s.", app)}
}

// ExecTool runs one of a fixed whitelist of shell commands. High risk:
// the registry parks it for confirmation before Execute is ever reached.
type ExecTool struct {
	Whitelist []string
}

// Descriptor returns the tool registration record.
func (t *ExecTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "system.exec",
		Description: "Run a whitelisted shell command",
		Tier:        TierHighRisk,
		Params: []Param{
			{Name: "command", Type: "string", Description: "command to run", Required: true},
		},
	}
}

// Execute implements Handler.
func (t *ExecTool) Execute(ctx context.Context, params map[string]string) Result {
	fields := strings.Fields(params["command"])
	if len(fields) == 0 {
		return Result{Success: false, Err: "empty command", Text: "There's no command to run."}
	}

	allowed := false
	for _, w := range t.Whitelist {
		if fields[0] == w {
			allowed = true
			break
		}
	}
	if !allowed {
		return Result{
			Success: false,
			Err:     fmt.Sprintf("command %q not whitelisted", fields[0]),
			Text:    fmt.Sprintf("%s is not on the allowed command list.", fields[0]),
		}
	}

	out, err := exec.CommandContext(ctx, fields[0], fields[1:]...).CombinedOutput()
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "The command failed."}
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		text = "Done."
	}
	return Result{Success: true, Text: text}
}

// ShutdownDescriptor registers the host shutdown action as forbidden.
// No handler exists; the registry refuses it before dispatch.
func ShutdownDescriptor() Descriptor {
	return Descriptor{
		Name:        "system.shutdown",
		Description: "Power off the host machine",
		Tier:        TierForbidden,
	}
}
