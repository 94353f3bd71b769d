package c64

import (
	"errors"
	"testing"
)

// buildTestImage constructs a minimal valid-size D64 image with one
// directory entry ("TEST") pointing at a single-sector file on track 19.
func buildTestImage() []byte {
	raw := make([]byte, sizeNoErrorInfo)

	dirIdx, err := trackSectorIndex(dirTrack, dirFirstSec)
	if err != nil {
		panic(err)
	}
	dirOff := dirIdx * bytesPerSector
	raw[dirOff+0] = 0 // no next directory sector
	raw[dirOff+1] = 0xFF

	entryBase := dirOff + 2
	raw[entryBase+0] = 0x82 // PRG, closed
	raw[entryBase+1] = 19   // first data track
	raw[entryBase+2] = 0    // first data sector
	name := "TEST"
	for i := 0; i < 16; i++ {
		if i < len(name) {
			raw[entryBase+3+i] = name[i]
		} else {
			raw[entryBase+3+i] = 0xA0
		}
	}
	raw[entryBase+28] = 1 // block count low byte

	fileIdx, err := trackSectorIndex(19, 0)
	if err != nil {
		panic(err)
	}
	fileOff := fileIdx * bytesPerSector
	raw[fileOff+0] = 0 // last sector of the file
	raw[fileOff+1] = 4 // 4 valid bytes follow (len = nextSector)
	raw[fileOff+2] = 0x00
	raw[fileOff+3] = 0x08 // load address $0800
	raw[fileOff+4] = 0xEA // NOP
	raw[fileOff+5] = 0x60 // RTS

	return raw
}

func TestAttachD64RejectsBadSize(t *testing.T) {
	_, err := AttachD64("bad.d64", make([]byte, 100))
	if !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestDirectoryListsAttachedFile(t *testing.T) {
	img, err := AttachD64("test.d64", buildTestImage())
	if err != nil {
		t.Fatalf("AttachD64: %v", err)
	}
	entries, err := img.Directory()
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if got := PETSCIIToASCII(entries[0].Name[:]); got != "TEST" {
		t.Fatalf("name=%q, want TEST", got)
	}
}

func TestReadFileWalksChain(t *testing.T) {
	img, err := AttachD64("test.d64", buildTestImage())
	if err != nil {
		t.Fatalf("AttachD64: %v", err)
	}
	entries, err := img.Directory()
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	data, err := img.ReadFile(entries[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []byte{0x00, 0x08, 0xEA, 0x60}
	if len(data) != len(want) {
		t.Fatalf("len(data)=%d, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("data[%d]=%02X, want %02X", i, data[i], want[i])
		}
	}
}
