package cli

import (
	"github.com/spf13/cobra"

	"github.com/avivsinai/a2a-mailbox/internal/poll"
)

func newPollCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "poll NAME",
		Short: "Wait for the first unread message in an inbox",
		Long: `Wait for the first unread message in an inbox.

The inbox is scanned up to --max-iterations times with --delay between
scans. With --watch (the default) a new message ends the wait early. The
message is not marked read; use "a2a mark-read" once it is handled.

Exits 4 when no unread message arrives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			out, res, err := a.svc.PollInbox(cmd.Context(), name, a.cfg.Poll.MaxIterations, a.cfg.Poll.Delay)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else if err := writeLine(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !res.Found {
				return TimeoutError("no unread messages for %s after %d attempts", name, res.Attempts)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntP("max-iterations", "n", poll.DefaultMaxIterations, "number of inbox scans")
	flags.Duration("delay", poll.DefaultDelay, "wait between scans")
	flags.Bool("watch", true, "wake early on new messages using filesystem notifications")
	flags.BoolVar(&asJSON, "json", false, "emit the poll result as JSON")
	_ = a.v.BindPFlag("poll.max_iterations", flags.Lookup("max-iterations"))
	_ = a.v.BindPFlag("poll.delay", flags.Lookup("delay"))
	_ = a.v.BindPFlag("poll.watch", flags.Lookup("watch"))
	return cmd
}
