// Package cli implements the a2a command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avivsinai/a2a-mailbox/internal/config"
	"github.com/avivsinai/a2a-mailbox/internal/logging"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
	"github.com/avivsinai/a2a-mailbox/internal/poll"
	"github.com/avivsinai/a2a-mailbox/internal/registry"
	"github.com/avivsinai/a2a-mailbox/internal/service"
)

// app is the state shared by every command. It is populated in the root
// command's PersistentPreRunE once flags have been parsed.
type app struct {
	version string
	v       *viper.Viper

	cfgFile string
	envFile string

	cfg *config.Config
	log zerolog.Logger
	reg *registry.Registry
	mb  *mailbox.Mailbox
	svc *service.Service
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version, v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "a2a",
		Short: "Filesystem mailbox for cooperating agents",
		Long: `a2a lets independent agent processes on one machine find each other and
exchange messages through a shared directory (default ~/a2a).

Run "a2a serve" to expose the mailbox as MCP tools over stdio, or use the
subcommands directly from a shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default $HOME/.config/a2a/config.yaml or ./a2a.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading A2A_* variables")
	flags.String("root", "", "mailbox root directory (default $HOME/a2a)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	_ = a.v.BindPFlag("root", flags.Lookup("root"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	cmd.AddCommand(
		newServeCmd(a),
		newRegisterCmd(a),
		newUnregisterCmd(a),
		newAgentsCmd(a),
		newSendCmd(a),
		newInboxCmd(a),
		newPollCmd(a),
		newMarkReadCmd(a),
		newReadCmd(a),
		newCleanupCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// Run executes the command tree with args.
func Run(ctx context.Context, version string, args []string) error {
	cmd := NewRootCmd(version)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	log, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.reg = registry.New(cfg.Root)
	a.mb = mailbox.New(cfg.Root, mailbox.WithStrictRecipients(cfg.Send.StrictRecipients))
	a.svc = service.New(a.reg, a.mb, a.newPoller(cfg.Poll.Watch), log)
	return nil
}

func (a *app) newPoller(watch bool) *poll.Poller {
	return poll.New(a.mb, poll.WithWatch(watch), poll.WithLogger(a.log))
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.version)
			return err
		},
	}
}
