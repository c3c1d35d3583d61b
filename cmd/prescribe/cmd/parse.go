package cmd

import (
	"fmt"
	"os"

	"github.com/mkyuone/prescribe/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <path.prsd>",
	Short: "Parse a file and print its AST",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := requirePrsdSuffix(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usageErrorf("%s: %v", path, err)
	}
	p, err := parser.New(string(data))
	if err != nil {
		return err
	}
	prog, err := p.ParseProgram()
	if err != nil {
		return err
	}
	fmt.Print(prog.String())
	return nil
}
