package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
)

var (
	okColor   = color.New(color.FgGreen)
	dimColor  = color.New(color.FgHiBlack)
	starColor = color.New(color.FgMagenta, color.Bold)
)

func newRateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate VALUE",
		Short: "Submit one rating between 1 and 5.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rating must be an integer: %q", args[0])
			}
			if err := domain.ValidateValue(value); err != nil {
				return err
			}

			logger, closeLog, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()
			client, err := a.client(logger)
			if err != nil {
				return err
			}
			if err := client.Rate(cmd.Context(), value); err != nil {
				return fmt.Errorf("rate: %w", err)
			}
			okColor.Fprintf(cmd.OutOrStdout(), "rated %s\n", stars(value))
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every rating.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()
			client, err := a.client(logger)
			if err != nil {
				return err
			}
			if err := client.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			okColor.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current average and event count.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()
			client, err := a.client(logger)
			if err != nil {
				return err
			}
			agg, err := client.Aggregate(cmd.Context())
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "average: %s\n", starColor.Sprintf("%.2f", agg.Average))
			fmt.Fprintf(out, "events:  %d\n", len(agg.Events))
			if n := len(agg.Events); n > 0 {
				latest := time.UnixMilli(agg.Events[n-1]).Format(time.DateTime)
				fmt.Fprintf(out, "latest:  %s\n", dimColor.Sprint(latest))
			}
			return nil
		},
	}
}

func stars(n int) string {
	s := ""
	for i := domain.MinValue; i <= domain.MaxValue; i++ {
		if i <= n {
			s += "★"
		} else {
			s += "☆"
		}
	}
	return s
}
