package roomview

import (
	"errors"
	"fmt"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command names a user interaction. Keyboard bindings and remote clients both speak it.
type Command string

const (
	CmdRotate           Command = "rotate"
	CmdZoomIn           Command = "zoom_in"
	CmdZoomOut          Command = "zoom_out"
	CmdResetZoom        Command = "reset_zoom"
	CmdToggleProjection Command = "toggle_projection"
	CmdSetProjection    Command = "set_projection"
	CmdSetMetric        Command = "set_metric"
	CmdSelect           Command = "select"
	CmdClearSelection   Command = "clear_selection"
)

type Input struct {
	Command Command `json:"command"`
	Arg     string  `json:"arg,omitempty"`
}

// Apply dispatches an input to the matching controller operation.
func (c *Controller) Apply(in Input) error {
	switch in.Command {
	case CmdRotate:
		c.Rotate()
	case CmdZoomIn:
		c.ZoomIn()
	case CmdZoomOut:
		c.ZoomOut()
	case CmdResetZoom:
		c.ResetZoom()
	case CmdToggleProjection:
		c.ToggleProjection()
	case CmdSetProjection:
		mode, err := ParseProjectionMode(in.Arg)
		if err != nil {
			return err
		}
		return c.SetProjection(mode)
	case CmdSetMetric:
		m, err := ParseMetric(in.Arg)
		if err != nil {
			return err
		}
		return c.SetMetric(m)
	case CmdSelect:
		c.SelectZone(in.Arg)
	case CmdClearSelection:
		c.ClearSelection()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(in.Command))
	}
	return nil
}
