package c64

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by AttachError, so callers can distinguish them
// with errors.Is instead of string-matching, per SPEC_FULL.md §4.8.
var (
	ErrBadSize     = errors.New("d64: image size is neither 174848 nor 196608 bytes")
	ErrBadChain    = errors.New("d64: directory or file sector chain is malformed")
	ErrOutOfRange  = errors.New("d64: track/sector out of range")
)

// AttachError wraps one of the sentinels above with the attempted path, so
// the server and CLI can render a precise message while still doing
// errors.Is(err, ErrBadSize) style dispatch.
type AttachError struct {
	Path string
	Err  error
}

func (e *AttachError) Error() string { return fmt.Sprintf("d64: %s: %v", e.Path, e.Err) }
func (e *AttachError) Unwrap() error { return e.Err }

const (
	sizeNoErrorInfo = 174848
	sizeWithErrorInfo = 196608
	bytesPerSector  = 256
)

// trackSectors gives the sector count of each of the 35 standard tracks
// (1-indexed); D64's per-zone geometry (CLV-style, more sectors on the
// outer tracks).
var trackSectors = [36]int{
	0,
	21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21,
	19, 19, 19, 19, 19, 19, 19,
	18, 18, 18, 18, 18, 18,
	17, 17, 17, 17, 17,
}

// D64Image is a parsed 1541 disk image: raw sector bytes plus the BAM and
// directory chain needed to list and extract PRG files. It is read-only
// (Non-goal: disk write-back).
type D64Image struct {
	data [][bytesPerSector]byte // indexed by linear sector number
}

// DirEntry is one directory slot as read off disk, PETSCII name intact.
type DirEntry struct {
	Name        [16]byte
	Track, Sector byte // first data sector of the file
	Blocks      uint16
	FileType    byte
}

// AttachD64 validates and parses a raw D64 image buffer.
func AttachD64(path string, raw []byte) (*D64Image, error) {
	if len(raw) != sizeNoErrorInfo && len(raw) != sizeWithErrorInfo {
		return nil, &AttachError{Path: path, Err: ErrBadSize}
	}

	img := &D64Image{}
	offset := 0
	for track := 1; track <= 35; track++ {
		for sector := 0; sector < trackSectors[track]; sector++ {
			var s [bytesPerSector]byte
			copy(s[:], raw[offset:offset+bytesPerSector])
			img.data = append(img.data, s)
			offset += bytesPerSector
		}
	}
	return img, nil
}

// trackSectorIndex maps (track,sector) to a linear index into img.data.
func trackSectorIndex(track, sector byte) (int, error) {
	if track < 1 || int(track) > 35 {
		return 0, ErrOutOfRange
	}
	if int(sector) >= trackSectors[track] {
		return 0, ErrOutOfRange
	}
	idx := 0
	for t := 1; t < int(track); t++ {
		idx += trackSectors[t]
	}
	return idx + int(sector), nil
}

// ReadSector returns the raw 256 bytes at (track, sector).
func (d *D64Image) ReadSector(track, sector byte) ([bytesPerSector]byte, error) {
	idx, err := trackSectorIndex(track, sector)
	if err != nil {
		return [bytesPerSector]byte{}, err
	}
	return d.data[idx], nil
}

// dirTrack/dirFirstSec give the fixed location of the first directory sector on
// every standard D64 image: track 18, sector 1 (sector 0 is the BAM).
const (
	dirTrack    = 18
	dirFirstSec = 1
)

// Directory walks the directory sector chain starting at track 18 sector
// 1, returning every non-empty (file-type != 0) slot across all linked
// sectors.
func (d *D64Image) Directory() ([]DirEntry, error) {
	var entries []DirEntry
	track, sector := byte(dirTrack), byte(dirFirstSec)
	seen := map[[2]byte]bool{}

	for {
		key := [2]byte{track, sector}
		if seen[key] {
			return nil, ErrBadChain
		}
		seen[key] = true

		s, err := d.ReadSector(track, sector)
		if err != nil {
			return nil, ErrBadChain
		}

		for slot := 0; slot < 8; slot++ {
			base := 2 + slot*32
			fileType := s[base]
			if fileType == 0 {
				continue
			}
			var e DirEntry
			e.FileType = fileType
			e.Track = s[base+1]
			e.Sector = s[base+2]
			copy(e.Name[:], s[base+3:base+19])
			e.Blocks = uint16(s[base+28]) | uint16(s[base+29])<<8
			entries = append(entries, e)
		}

		nextTrack, nextSector := s[0], s[1]
		if nextTrack == 0 {
			break
		}
		track, sector = nextTrack, nextSector
	}
	return entries, nil
}

// ReadFile walks a file's sector chain (the standard D64 link format:
// byte 0 of each sector is the next track, 0 meaning "this is the last
// sector"; byte 1 is either the next sector or, on the last sector, the
// number of valid bytes used in it) and returns its contents.
func (d *D64Image) ReadFile(entry DirEntry) ([]byte, error) {
	var out []byte
	track, sector := entry.Track, entry.Sector
	seen := map[[2]byte]bool{}

	for {
		key := [2]byte{track, sector}
		if seen[key] {
			return nil, ErrBadChain
		}
		seen[key] = true

		s, err := d.ReadSector(track, sector)
		if err != nil {
			return nil, ErrBadChain
		}

		nextTrack, nextSector := s[0], s[1]
		if nextTrack == 0 {
			if int(nextSector) > len(s)-2 {
				return nil, ErrBadChain
			}
			out = append(out, s[2:2+int(nextSector)]...)
			break
		}
		out = append(out, s[2:]...)
		track, sector = nextTrack, nextSector
	}
	return out, nil
}

// PETSCIIToASCII converts a directory name (space-padded, shifted PETSCII
// upper/graphics set) to plain ASCII for display.
func PETSCIIToASCII(petscii []byte) string {
	b := make([]byte, 0, len(petscii))
	for _, c := range petscii {
		if c == 0xA0 || c == 0x20 {
			break // trailing shifted-space padding
		}
		b = append(b, c)
	}
	return string(b)
}
