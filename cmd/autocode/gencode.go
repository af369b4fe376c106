package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notepid/autocode/internal/autocode"
)

var gencodeCount int

var gencodeCmd = &cobra.Command{
	Use:   "gencode",
	Short: "Print random lock codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if gencodeCount < 1 {
			return fmt.Errorf("count must be at least 1")
		}
		for i := 0; i < gencodeCount; i++ {
			fmt.Fprintln(cmd.OutOrStdout(), autocode.GenerateCode())
		}
		return nil
	},
}

func init() {
	gencodeCmd.Flags().IntVarP(&gencodeCount, "count", "n", 1, "number of codes")
}
