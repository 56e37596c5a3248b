package main

import "github.com/spf13/cobra"

func newMembersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "members TO",
		Short: "Print the member ids of collection TO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.cache.Members(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ids)
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add TO ID...",
		Short: "Add member ids to collection TO",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cache.AddMembers(cmd.Context(), args[0], args[1:]...)
		},
	}
}

func newDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del TO ID...",
		Short: "Remove member ids from collection TO",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cache.RemoveMembers(cmd.Context(), args[0], args[1:]...)
		},
	}
}

func newDropCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop TO...",
		Short: "Delete whole collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cache.RemoveRelationship(cmd.Context(), args...)
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count TO",
		Short: "Print the number of members of TO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.cache.Count(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
}

func newContainsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "contains TO ID",
		Short: "Print whether ID is a member of TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.cache.Contains(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ok)
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys TO",
		Short: `Print the entity keys "TO.ID" of every member`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.cache.Keys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), keys)
		},
	}
}

func newValuesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "values TO",
		Short: "Print the stored entities of every member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := a.cache.Values(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), vals)
		},
	}
}
