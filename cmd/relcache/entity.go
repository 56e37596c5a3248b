package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored at KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok, err := a.cache.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", args[0], errNotFound)
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

func newMGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mget KEY...",
		Short: "Print the values of the given keys that exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := a.cache.GetMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), vals)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Store a JSON value at KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseJSON(args[1])
			if err != nil {
				return err
			}
			return a.cache.Set(cmd.Context(), args[0], v)
		},
	}
}

func newPatchCmd(a *app) *cobra.Command {
	var updateOnly bool
	cmd := &cobra.Command{
		Use:   "patch KEY JSON",
		Short: "Merge a JSON object into the record at KEY",
		Long: `Merge a JSON value into the entity at KEY. Objects are merged one level
deep over an existing object; arrays and scalars replace the stored value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseJSON(args[1])
			if err != nil {
				return err
			}
			return a.cache.Patch(cmd.Context(), updateOnly, args[0], v)
		},
	}
	cmd.Flags().BoolVar(&updateOnly, "update-only", false, "do nothing when KEY has no value")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY...",
		Short: "Remove entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cache.Remove(cmd.Context(), args...)
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	var keysOnly bool
	cmd := &cobra.Command{
		Use:   "scan PATTERN",
		Short: "Print entities whose key matches PATTERN",
		Long: `Print the entities whose key matches PATTERN. "*" matches exactly one
non-empty dot-separated segment and the segment count must match:
"guild.*.members.*" matches "guild.1.members.7" but not "guild.1.members".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out any
				err error
			)
			if keysOnly {
				out, err = a.cache.ScanKeys(cmd.Context(), args[0])
			} else {
				out, err = a.cache.Scan(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&keysOnly, "keys", false, "print matching keys instead of values")
	return cmd
}

func newFlushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Delete every entity and relationship of the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cache.Flush(cmd.Context())
		},
	}
}
