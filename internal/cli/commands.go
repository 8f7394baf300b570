package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avivsinai/a2a-mailbox/internal/format"
	"github.com/avivsinai/a2a-mailbox/internal/service"
)

func newRegisterCmd(a *app) *cobra.Command {
	var description, capabilities, workingDir string

	cmd := &cobra.Command{
		Use:   "register NAME",
		Short: "Register an agent or refresh its registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := workingDir
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			out, err := a.svc.RegisterAgent(cmd.Context(), args[0], description, capabilities, dir)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the agent is doing")
	cmd.Flags().StringVar(&capabilities, "capabilities", "", "what the agent can help with")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "directory the agent works in (default current directory)")
	return cmd
}

func newUnregisterCmd(a *app) *cobra.Command {
	var deleteInbox bool

	cmd := &cobra.Command{
		Use:   "unregister NAME",
		Short: "Remove an agent from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.svc.UnregisterAgent(cmd.Context(), args[0], deleteInbox)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&deleteInbox, "delete-inbox", false, "also delete the agent's inbox and all its messages")
	return cmd
}

func newAgentsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Show the agent registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				recs, err := a.svc.Agents(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			out, err := a.svc.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), ensureNewline(out))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit registry records as JSON")
	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	var from, to, subject, body string
	var expectsReply bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to an agent's inbox",
		Long: `Send a message to an agent's inbox.

The body comes from --body, from a file with --body @path, or from stdin
when --body is omitted or set to @-.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" || to == "" {
				return UsageError("--from and --to are required")
			}
			text, err := readBody(cmd.InOrStdin(), body)
			if err != nil {
				return err
			}
			out, err := a.svc.SendMessage(cmd.Context(), from, to, subject, expectsReply, strings.TrimRight(text, "\n"))
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender agent name")
	cmd.Flags().StringVar(&to, "to", "", "recipient agent name")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "message subject")
	cmd.Flags().StringVar(&body, "body", "", "message body, @file, or @- for stdin")
	cmd.Flags().BoolVar(&expectsReply, "expects-reply", false, "mark the message as awaiting a reply")
	cmd.Flags().Bool("strict", false, "fail instead of creating a missing recipient inbox")
	_ = a.v.BindPFlag("send.strict_recipients", cmd.Flags().Lookup("strict"))
	return cmd
}

func newInboxCmd(a *app) *cobra.Command {
	var includeRead, asJSON bool

	cmd := &cobra.Command{
		Use:   "inbox NAME",
		Short: "List the messages in an agent's inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inbox, err := a.svc.Inbox(cmd.Context(), args[0], includeRead)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, inbox)
			}
			if isTerminal(out) {
				return writeLine(out, renderInboxStyled(inbox))
			}
			return writeLine(out, service.RenderInbox(inbox))
		},
	}
	cmd.Flags().BoolVarP(&includeRead, "all", "a", false, "include messages already marked read")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func newMarkReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read PATH...",
		Short: "Mark messages as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				out, err := a.svc.MarkRead(cmd.Context(), path)
				if err != nil {
					return err
				}
				if err := writeLine(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type readOutput struct {
	Path       string         `json:"path"`
	Read       bool           `json:"read"`
	Header     *format.Header `json:"header,omitempty"`
	Body       string         `json:"body,omitempty"`
	Content    string         `json:"content"`
	ParseError string         `json:"parse_error,omitempty"`
}

func newReadCmd(a *app) *cobra.Command {
	var asJSON, mark bool

	cmd := &cobra.Command{
		Use:   "read PATH",
		Short: "Print a message without marking it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.ReadMessage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if mark {
				if _, err := a.svc.MarkRead(cmd.Context(), env.Path); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if !asJSON {
				_, err := io.WriteString(out, ensureNewline(env.Content))
				return err
			}
			res := readOutput{Path: env.Path, Read: env.Read || mark, Content: env.Content}
			msg, perr := format.ParseMessage([]byte(env.Content))
			if perr != nil {
				res.ParseError = perr.Error()
			} else {
				res.Header = &msg.Header
				res.Body = msg.Body
			}
			return writeJSON(out, res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the parsed header and body as JSON")
	cmd.Flags().BoolVar(&mark, "mark", false, "mark the message read after printing")
	return cmd
}

// readBody resolves the --body flag: literal text, @path for a file, or
// stdin when empty or @-.
func readBody(stdin io.Reader, bodyFlag string) (string, error) {
	if bodyFlag == "" || bodyFlag == "@-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if path, ok := strings.CutPrefix(bodyFlag, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", UsageError("body file not found: %s", path)
			}
			return "", err
		}
		return string(data), nil
	}
	return bodyFlag, nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
