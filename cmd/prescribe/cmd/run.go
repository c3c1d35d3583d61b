package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkyuone/prescribe/internal/container"
	"github.com/spf13/cobra"
)

var (
	fenceName string
	traceExec bool
)

var runCmd = &cobra.Command{
	Use:   "run <path.prsd>",
	Short: "Run a Prescribe container file",
	Long: `Run reads the given .prsd file, reads stdin to end, extracts and
runs each fenced ":::prescribe" ... ":::" block in order as an independent
program, and writes the accumulated output to stdout. A file with no
fences is treated as a single block containing the whole text.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&fenceName, "fence", container.DefaultFence, "fenced-block marker name")
	runCmd.Flags().BoolVar(&traceExec, "trace", false, "log each executed statement's source line to stderr")
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := requirePrsdSuffix(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return usageErrorf("%s: %v", path, err)
	}
	stdin, err := io.ReadAll(os.Stdin)
	if err != nil {
		return usageErrorf("reading stdin: %v", err)
	}

	filter := newLogger()
	if traceExec {
		filter.MinLevel = "DEBUG"
	}
	logger := log.New(filter, "", 0)

	var trace func(line int)
	if traceExec {
		trace = func(line int) { logger.Printf("[DEBUG] line %d", line) }
	}

	out, err := container.Run(string(data), fenceName, string(stdin), trace)
	fmt.Print(out)
	return err
}
