package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/rating-pulse/internal/dashboard"
	"github.com/Clark-Hu/rating-pulse/internal/render"
	"github.com/Clark-Hu/rating-pulse/internal/render/term"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[?25l"
	leaveAltScreen = "\x1b[?25h\x1b[?1049l"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Draw the live rate graph until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fd := int(os.Stdout.Fd())
			if !term.IsTerminal(fd) {
				return fmt.Errorf("watch needs a terminal on stdout")
			}
			return a.watch(cmd, os.Stdout, term.FDSize(fd))
		},
	}
	cmd.Flags().Duration("window", defaultWindow, "Length of the trailing window")
	cmd.Flags().Duration("interval", defaultInterval, "Sample spacing within the window")
	cmd.Flags().Int("fps", defaultFPS, "Redraws per second")
	cmd.Flags().String("line-color", "", "Curve color (#rrggbb or rgb()/rgba())")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, out io.Writer, size term.SizeFunc) error {
	logger, closeLog, err := a.logger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := a.client(logger)
	if err != nil {
		return err
	}

	style := term.Style()
	if c := a.v.GetString("line-color"); c != "" {
		parsed, err := render.ParseColor(c)
		if err != nil {
			return err
		}
		style.LineColor = parsed
		style.FillColor = parsed
		style.FillColor.A = 31
	}

	surface := term.New(out, size)
	dash, err := dashboard.New(client, surface, render.TickerClock{FPS: a.v.GetInt("fps")}, dashboard.Options{
		Window:   a.v.GetDuration("window"),
		Interval: a.v.GetDuration("interval"),
		Style:    style,
	}, logger)
	if err != nil {
		return err
	}

	resize, stopResize := resizeSignals()
	defer stopResize()

	fmt.Fprint(out, enterAltScreen)
	defer fmt.Fprint(out, leaveAltScreen)

	logger.Printf("pulse: watching %s", a.v.GetString("server"))
	return dash.Run(cmd.Context(), resize)
}
