package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(o *options) *cobra.Command {
	o.zapOpts = zap.Options{Development: true}

	cmd := &cobra.Command{
		Use:   "porkbun-dns01",
		Short: "Solve ACME DNS-01 challenges with Porkbun DNS",
		Long: `porkbun-dns01 creates and removes the _acme-challenge TXT record of a domain
through the Porkbun API. It follows CNAME/DNAME delegation of the challenge name.

Use it as certbot manual hooks:

  certbot certonly --manual --preferred-challenges dns \
    --manual-auth-hook "porkbun-dns01 perform --credentials /etc/porkbun.yaml" \
    --manual-cleanup-hook "porkbun-dns01 cleanup --credentials /etc/porkbun.yaml" \
    -d example.com

perform waits --propagation-seconds (600 by default) before it returns, so
certbot only asks for validation once the record is visible.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			o.log = zap.New(zap.UseFlagOptions(&o.zapOpts), zap.WriteTo(c.ErrOrStderr())).
				WithName("porkbun-dns01").
				WithValues("runId", uuid.NewString())
			return nil
		},
	}

	o.bindFlags(cmd)

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	o.zapOpts.BindFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.AddCommand(newPerformCmd(o))
	cmd.AddCommand(newCleanupCmd(o))
	cmd.AddCommand(newListCmd(o))
	cmd.AddCommand(newPingCmd(o))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			fmt.Fprintln(c.OutOrStdout(), Version)
			return nil
		},
	}
}
