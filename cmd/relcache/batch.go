package main

import (
	"bufio"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// newBatchCmd runs one command per input line against a single open cache.
// Each line is a JSON array of arguments, e.g. ["add", "guild.1", "7"].
// Blank lines and lines starting with # are skipped.
func newBatchCmd(a *app) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run commands read from stdin, one JSON argument array per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
			failed := 0
			for n := 1; sc.Scan(); n++ {
				line := strings.TrimSpace(sc.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				var args []string
				err := json.Unmarshal([]byte(line), &args)
				if err == nil {
					err = a.runLine(cmd, args)
				}
				if err != nil {
					if !keepGoing {
						return fmt.Errorf("line %d: %w", n, err)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", n, err)
					failed++
				}
			}
			if err := sc.Err(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d line(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "report failed lines and continue")
	return cmd
}

// runLine executes args on a fresh command tree so flags never leak
// between lines.
func (a *app) runLine(parent *cobra.Command, args []string) error {
	if len(args) > 0 && args[0] == "batch" {
		return fmt.Errorf("batch cannot be nested")
	}
	sub := &cobra.Command{Use: "batch", SilenceUsage: true, SilenceErrors: true}
	addCommands(sub, a)
	sub.SetArgs(args)
	sub.SetOut(parent.OutOrStdout())
	sub.SetErr(parent.ErrOrStderr())
	return sub.ExecuteContext(parent.Context())
}
