package cmd

import (
	"fmt"
	"os"

	"github.com/mkyuone/prescribe/internal/parser"
	"github.com/mkyuone/prescribe/internal/semantic"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <path.prsd>",
	Short: "Lex, parse and type-check a file without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	if _, err := semantic.Analyze(prog); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}
