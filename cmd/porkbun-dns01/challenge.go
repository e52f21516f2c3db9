package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/challenge"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/resolve"
)

const (
	envDomain     = "CERTBOT_DOMAIN"
	envValidation = "CERTBOT_VALIDATION"
	envAuthOutput = "CERTBOT_AUTH_OUTPUT"
)

// challengeArgs are the per-challenge inputs. Unset flags fall back to the
// environment certbot exports to its manual hooks.
type challengeArgs struct {
	domain     string
	validation string
}

func (a *challengeArgs) bindFlags(f *pflag.FlagSet) {
	f.StringVar(&a.domain, "domain", "", "domain being validated (default $"+envDomain+")")
	f.StringVar(&a.validation, "validation", "", "validation token (default $"+envValidation+")")
}

func (a *challengeArgs) complete(f *pflag.FlagSet, needValidation bool) error {
	a.domain = flagOrEnv(f, "domain", a.domain, envDomain)
	a.validation = flagOrEnv(f, "validation", a.validation, envValidation)

	if a.domain == "" {
		return fmt.Errorf("no domain: pass --domain or set %s", envDomain)
	}
	if needValidation && a.validation == "" {
		return fmt.Errorf("no validation token: pass --validation or set %s", envValidation)
	}
	return nil
}

// validationName is the name the ACME server queries for domain.
func (a *challengeArgs) validationName() string {
	return resolve.ChallengeLabel + "." + strings.TrimPrefix(a.domain, "*.")
}

func flagOrEnv(f *pflag.FlagSet, name, value, env string) string {
	if f.Changed(name) {
		return value
	}
	return os.Getenv(env)
}

func newPerformCmd(o *options) *cobra.Command {
	var (
		args challengeArgs
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "perform",
		Short: "Create the challenge TXT record (certbot --manual-auth-hook)",
		Long: `perform creates the TXT record holding the validation token, prints its
handle as JSON on stdout and waits --propagation-seconds for the record to
reach the authoritative nameservers (--wait=false returns at once). certbot
passes the output to the cleanup hook as $CERTBOT_AUTH_OUTPUT.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := args.complete(c.Flags(), true); err != nil {
				return err
			}

			auth, release, err := o.authenticator()
			if err != nil {
				return err
			}
			defer release()

			h, err := auth.Perform(c.Context(), args.domain, args.validationName(), args.validation)
			if err != nil {
				return err
			}

			out, err := json.Marshal(h)
			if err != nil {
				return fmt.Errorf("encoding handle: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), string(out))

			if wait {
				return o.wait(c.Context())
			}
			return nil
		},
	}

	args.bindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&wait, "wait", true, "wait --propagation-seconds before returning; certbot validates as soon as the hook exits")
	return cmd
}

func newCleanupCmd(o *options) *cobra.Command {
	var (
		args   challengeArgs
		handle string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the challenge TXT record (certbot --manual-cleanup-hook)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := args.complete(c.Flags(), true); err != nil {
				return err
			}
			handle = flagOrEnv(c.Flags(), "handle", handle, envAuthOutput)

			auth, release, err := o.authenticator()
			if err != nil {
				return err
			}
			defer release()

			if handle != "" {
				h, err := decodeHandle(handle)
				if err != nil {
					o.log.Info("ignoring unreadable handle, looking the record up instead", "reason", err.Error())
				} else if err := auth.Store.Put(c.Context(), args.validation, h); err != nil {
					o.log.Error(err, "failed to remember handle")
				}
			}

			return auth.Cleanup(c.Context(), args.domain, args.validationName(), args.validation)
		},
	}

	args.bindFlags(cmd.Flags())
	cmd.Flags().StringVar(&handle, "handle", "", "JSON handle printed by perform (default $"+envAuthOutput+")")
	return cmd
}

// decodeHandle reads the handle from perform's output. Hooks may print other
// lines first, so the last non-empty line wins.
func decodeHandle(output string) (challenge.Handle, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	var h challenge.Handle
	if err := json.Unmarshal([]byte(last), &h); err != nil {
		return challenge.Handle{}, fmt.Errorf("decoding handle: %w", err)
	}
	if h.Zone == "" {
		return challenge.Handle{}, errors.New("decoding handle: missing zone")
	}
	return h, nil
}
