package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns"
)

func newListCmd(o *options) *cobra.Command {
	var args challengeArgs

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the TXT records at the challenge name of a domain",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := args.complete(c.Flags(), false); err != nil {
				return err
			}

			cfg, err := o.config()
			if err != nil {
				return err
			}
			p, err := o.provider(cfg)
			if err != nil {
				return err
			}

			target, err := o.resolver(cfg).Resolve(c.Context(), args.domain)
			if err != nil {
				return err
			}
			records, err := p.ListRecords(c.Context(), target.Zone, dns.RecordTypeTXT, target.Name)
			if err != nil {
				return err
			}

			w := c.OutOrStdout()
			fmt.Fprintf(w, "zone %s, name %s\n", target.Zone, dns.Fqdn(target.Name, target.Zone))

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"ID", "Name", "Content", "TTL"})
			table.SetAutoWrapText(false)
			for _, r := range records {
				table.Append([]string{r.ID, dns.Fqdn(r.Name, target.Zone), r.Content, strconv.Itoa(r.TTL)})
			}
			table.Render()
			return nil
		},
	}

	args.bindFlags(cmd.Flags())
	return cmd
}
