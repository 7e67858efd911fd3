package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yoremi/cerberus-go/pkg/hashtable"
)

var HashGame string

// hashCmd looks hashes up in a game's table
var hashCmd = &cobra.Command{
	Use:   "hash <hex>...",
	Short: "Resolve hashes against a game's hash table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tables, err := hashtable.LoadSet(cfg.HashDir, []string{HashGame})
		if err != nil {
			return err
		}
		table := tables[HashGame]

		for _, arg := range args {
			v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 32)
			if err != nil {
				return errors.Wrapf(err, "bad hash %q", arg)
			}
			hash := uint32(v)
			name := table.Resolve(hash, hashtable.PrefixHash)
			if _, ok := table.Lookup(hash); !ok {
				name += " (unknown)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%08x,%s\n", hash, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().StringVarP(&HashGame, "game", "g", "BlackOps3", "game whose table to search")
}
