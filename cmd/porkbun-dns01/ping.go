package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the API credentials",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			p, err := o.provider(cfg)
			if err != nil {
				return err
			}

			ip, err := p.Ping(c.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "credentials ok, seen from %s\n", ip)
			return nil
		},
	}
}
