package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zsiec/liveframe/internal/sdp"
)

func (a *app) sdpCommand() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "sdp",
		Short: "Parse and serialize session descriptions",
	}
	cmd.PersistentFlags().BoolVar(&lenient, "lenient", false, "skip malformed rtpmap and fmtp values instead of failing")

	parse := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse an SDP document and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseSDP(cmd, args[0], lenient)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return fmt.Errorf("encode %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	format := &cobra.Command{
		Use:   "format FILE",
		Short: "Parse an SDP document and write it back in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseSDP(cmd, args[0], lenient)
			if err != nil {
				return err
			}
			text, err := sdp.Unparse(d, a.cfg.Strict)
			if err != nil {
				return fmt.Errorf("serialize %s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	format.Flags().Bool("strict", false, "reject attributes that may appear at most once but repeat")

	cmd.AddCommand(parse, format)
	return cmd
}

func (a *app) parseSDP(cmd *cobra.Command, path string, lenient bool) (sdp.SessionDescription, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return sdp.SessionDescription{}, err
	}
	p := sdp.Parser{Lenient: lenient, Logger: a.log}
	d, err := p.Parse(string(data))
	if err != nil {
		return sdp.SessionDescription{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}
