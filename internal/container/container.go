// Package container extracts and runs the fenced-block ".prsd" document
// format: a text document that may interleave prose with fenced Prescribe
// source blocks, each run as an independent program.
package container

import (
	"bufio"
	"strings"

	"github.com/mkyuone/prescribe/internal/interp"
	"github.com/mkyuone/prescribe/internal/parser"
	"github.com/mkyuone/prescribe/internal/semantic"
)

// DefaultFence is the fenced-block opening marker name when --fence is not
// given: a line whose trimmed content is exactly ":::prescribe".
const DefaultFence = "prescribe"

// Block is one fenced (or whole-document) Prescribe program, with the
// 1-based line number of its first source line in the original document.
type Block struct {
	Source    string
	StartLine int
}

// Extract splits text into its fenced blocks. A block runs from a line
// whose trimmed content is exactly ":::"+fence to the next line whose
// trimmed content is exactly ":::"; text outside any fence is prose and is
// discarded. A document with no matching open fence is treated as a single
// block containing the whole text, per the container format's fallback
// rule.
func Extract(text string, fence string) []Block {
	open := ":::" + fence
	const closeMarker = ":::"

	var blocks []Block
	var cur []string
	curStart := 0
	inBlock := false
	sawFence := false

	flush := func() {
		if inBlock {
			blocks = append(blocks, Block{Source: strings.Join(cur, "\n"), StartLine: curStart})
			cur = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && trimmed == open:
			inBlock = true
			sawFence = true
			curStart = lineNo + 1
		case inBlock && trimmed == closeMarker:
			flush()
			inBlock = false
		case inBlock:
			cur = append(cur, line)
		}
	}
	flush()

	if !sawFence {
		return []Block{{Source: text, StartLine: 1}}
	}
	return blocks
}

// Run lexes, parses, checks and executes every block in text in order,
// sharing one stdin token stream across blocks but giving each its own
// namespace, heap and global frame (blocks share neither variables nor file
// handles). It stops at the first diagnostic, returning everything written
// to stdout up to and including the failing block.
//
// trace, when non-nil, is installed on every block's interpreter, so
// --trace reports each block's own statement lines.
func Run(text string, fence string, stdin string, trace func(line int)) (string, error) {
	blocks := Extract(text, fence)
	var out strings.Builder
	input := strings.Fields(stdin)

	for _, b := range blocks {
		p, err := parser.New(b.Source)
		if err != nil {
			return out.String(), err
		}
		prog, err := p.ParseProgram()
		if err != nil {
			return out.String(), err
		}
		result, err := semantic.Analyze(prog)
		if err != nil {
			return out.String(), err
		}
		blockOut, remaining, err := interp.RunWithInputTraced(prog, result, input, trace)
		out.WriteString(blockOut)
		input = remaining
		if err != nil {
			return out.String(), err
		}
	}
	return out.String(), nil
}
