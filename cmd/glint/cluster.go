package main

import (
	"fmt"

	"github.com/cuemby/glint/pkg/cluster"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster membership utilities",
	Long: `Raft state lives inside a running "glint serve" process and is not
safe to open a second time from another process against the same data
directory, so these subcommands only cover operations that don't need
a live node: validating a membership string before handing it to
"serve --nodes" or to a running node's RefreshNodes call.`,
}

var clusterParseMembershipCmd = &cobra.Command{
	Use:   "parse-membership <csv>",
	Short: "Validate and print a cluster membership string",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peers, err := cluster.ParseMembership(args[0])
		if err != nil {
			return err
		}
		for _, p := range peers {
			fmt.Printf("%s  peering=%s  api=%s\n", p.Host, p.PeeringAddr(), p.APIAddr())
		}
		return nil
	},
}

func init() {
	clusterCmd.AddCommand(clusterParseMembershipCmd)
}
