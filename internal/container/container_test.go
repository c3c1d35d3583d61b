package container

import "testing"

func TestExtractNoFenceIsOneBlock(t *testing.T) {
	text := "PROGRAM P\nOUTPUT 1\nENDPROGRAM"
	blocks := Extract(text, DefaultFence)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Source != text {
		t.Errorf("got %q", blocks[0].Source)
	}
}

func TestExtractMultipleFences(t *testing.T) {
	text := `prose before

:::prescribe
PROGRAM A
OUTPUT 1
ENDPROGRAM
:::

prose between

:::prescribe
PROGRAM B
OUTPUT 2
ENDPROGRAM
:::

trailing prose`
	blocks := Extract(text, DefaultFence)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Source != "PROGRAM A\nOUTPUT 1\nENDPROGRAM" {
		t.Errorf("block 1: %q", blocks[0].Source)
	}
	if blocks[1].Source != "PROGRAM B\nOUTPUT 2\nENDPROGRAM" {
		t.Errorf("block 2: %q", blocks[1].Source)
	}
}

func TestExtractCustomFenceName(t *testing.T) {
	text := ":::lucid\nPROGRAM P\nOUTPUT 1\nENDPROGRAM\n:::"
	blocks := Extract(text, "lucid")
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	// A default-named fence inside text scanned with a different fence name
	// is just prose: it never opens a block.
	blocksWrongName := Extract(text, DefaultFence)
	if len(blocksWrongName) != 1 || blocksWrongName[0].Source != text {
		t.Errorf("expected whole-text fallback when the fence name doesn't match, got %+v", blocksWrongName)
	}
}

func TestRunBlocksAreIndependent(t *testing.T) {
	text := `:::prescribe
PROGRAM A
DECLARE X : INTEGER
X <- 1
OUTPUT X
ENDPROGRAM
:::

:::prescribe
PROGRAM B
DECLARE X : INTEGER
OUTPUT X
ENDPROGRAM
:::`
	out, err := Run(text, DefaultFence, "", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "1\n0\n" {
		t.Errorf("got %q, want block B's X to default to 0 (no shared state)", out)
	}
}

func TestRunSharesStdinAcrossBlocks(t *testing.T) {
	text := `:::prescribe
PROGRAM A
DECLARE X : INTEGER
INPUT X
OUTPUT X
ENDPROGRAM
:::

:::prescribe
PROGRAM B
DECLARE Y : INTEGER
INPUT Y
OUTPUT Y
ENDPROGRAM
:::`
	out, err := Run(text, DefaultFence, "10 20", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "10\n20\n" {
		t.Errorf("got %q, want each block to continue reading stdin where the last left off", out)
	}
}

func TestRunStopsAtFirstFailingBlock(t *testing.T) {
	text := `:::prescribe
PROGRAM A
OUTPUT 1
ENDPROGRAM
:::

:::prescribe
PROGRAM B
DECLARE Ptr : POINTER TO INTEGER
Ptr <- NULL
OUTPUT ^Ptr
ENDPROGRAM
:::

:::prescribe
PROGRAM C
OUTPUT 3
ENDPROGRAM
:::`
	out, err := Run(text, DefaultFence, "", nil)
	if err == nil {
		t.Fatal("expected an error from block B's null dereference")
	}
	if out != "1\n" {
		t.Errorf("got %q, want only block A's output before the failure", out)
	}
}
