package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
)

func statsCmd(opts *options) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show live sessions, users and audit counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts.addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := opts.withTimeout(cmd.Context())
			defer cancel()

			st, err := c.Stats(ctx, token)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "admin token (see relayctl token)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func keysCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List registered users and their public keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts.addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := opts.withTimeout(cmd.Context())
			defer cancel()

			keys, err := c.PublicKeys(ctx)
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}

			names := make([]string, 0, len(keys))
			for name := range keys {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, keys[name])
			}
			return nil
		},
	}
}
