package cmd

import (
	"fmt"
	"os"

	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
	"github.com/spf13/cobra"
)

var lexCmd = &cobra.Command{
	Use:   "lex <path.prsd>",
	Short: "Tokenize a file and print its token stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
}

func runLex(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := requirePrsdSuffix(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usageErrorf("%s: %v", path, err)
	}
	toks, err := lexer.All(string(data))
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return perr.New(perr.SyntaxError, le.Pos.Line, "%s", le.Message)
		}
		return perr.New(perr.SyntaxError, 0, "%s", err.Error())
	}
	for _, t := range toks {
		fmt.Println(t.String())
	}
	return nil
}
