package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
)

type cleanupResult struct {
	Candidates []string `json:"candidates"`
	Count      int      `json:"count"`
	Removed    int      `json:"removed"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

func newCleanupCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	var dryRun, yes, asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale temporary files left by interrupted writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return UsageError("--older-than must be > 0")
			}
			candidates, err := fsq.FindTmpFilesOlderThan(a.cfg.Root, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			res := cleanupResult{Candidates: candidates, Count: len(candidates), DryRun: dryRun}
			if res.Candidates == nil {
				res.Candidates = []string{}
			}

			if len(candidates) == 0 {
				if asJSON {
					return writeJSON(out, res)
				}
				return writeLine(out, "No tmp files to remove.")
			}
			if dryRun {
				if asJSON {
					return writeJSON(out, res)
				}
				if err := writeLine(out, fmt.Sprintf("Would remove %d tmp file(s).", len(candidates))); err != nil {
					return err
				}
				for _, path := range candidates {
					if err := writeLine(out, path); err != nil {
						return err
					}
				}
				return nil
			}
			if !yes {
				ok, err := confirmPrompt(cmd.InOrStdin(), out, fmt.Sprintf("Delete %d tmp file(s)?", len(candidates)))
				if err != nil {
					return err
				}
				if !ok {
					return writeLine(out, "Aborted.")
				}
			}

			for _, path := range candidates {
				if err := removeIfExists(path); err != nil {
					return err
				}
				res.Removed++
			}
			a.log.Info().Int("removed", res.Removed).Str("root", a.cfg.Root).Msg("tmp files removed")
			if asJSON {
				return writeJSON(out, res)
			}
			return writeLine(out, fmt.Sprintf("Removed %d tmp file(s).", res.Removed))
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only remove tmp files older than this (e.g. 36h)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed without deleting")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

func confirmPrompt(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
