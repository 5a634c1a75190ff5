package dictionary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Header constants of the binary dictionary format.
const (
	Magic   uint32 = 0x4B455953 // "KEYS"
	Family  uint32 = 0x44494354 // "DICT"
	Version uint32 = 1

	// FileExtension is the extension dictionary files carry on disk.
	FileExtension = ".dict"

	headerSize      = 15
	charRecordSize  = 6
	offsetMagic     = 0
	offsetFamily    = 4
	offsetVersion   = 8
	offsetMaxLength = 12
	offsetCharCount = 13
)

var (
	// ErrInvalidFormat is returned when the magic or family constants don't match.
	ErrInvalidFormat = errors.New("invalid dictionary format")
	// ErrUnsupportedVersion is returned for any version other than Version.
	ErrUnsupportedVersion = errors.New("unsupported dictionary version")
	// ErrTruncated is returned when the blob ends before the declared tables.
	ErrTruncated = errors.New("truncated dictionary")
)

// Header holds the fixed-size fields at the start of a dictionary blob.
type Header struct {
	Version       uint32
	MaxWordLength int // as stored, without the tolerance for one extra input char
	CharCount     int
}

// TreeOffset is the byte offset where the trie starts.
func (h Header) TreeOffset() int {
	return headerSize + h.CharCount*charRecordSize
}

// ParseHeader validates and decodes the fixed header of a dictionary blob.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(data), headerSize)
	}
	h, err := decodeHeader(data[:headerSize])
	if err != nil {
		return Header{}, err
	}
	if len(data) < h.TreeOffset() {
		return Header{}, fmt.Errorf("%w: character table needs %d bytes, have %d", ErrTruncated, h.TreeOffset(), len(data))
	}
	return h, nil
}

// ReadHeader reads and validates just the header and character table size
// from r, without loading the trie.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrTruncated)
		}
		return Header{}, err
	}
	return decodeHeader(buf)
}

// decodeHeader checks the constants and version in buf, which holds exactly
// headerSize bytes.
func decodeHeader(buf []byte) (Header, error) {
	if binary.BigEndian.Uint32(buf[offsetMagic:]) != Magic ||
		binary.BigEndian.Uint32(buf[offsetFamily:]) != Family {
		return Header{}, ErrInvalidFormat
	}
	h := Header{
		Version:       binary.BigEndian.Uint32(buf[offsetVersion:]),
		MaxWordLength: int(buf[offsetMaxLength]),
		CharCount:     int(binary.BigEndian.Uint16(buf[offsetCharCount:])),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// ValidateFile checks that filename looks like a dictionary file: right
// extension, big enough for its header and character table.
func ValidateFile(filename string) (Header, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != FileExtension {
		return Header{}, fmt.Errorf("file %s has invalid extension %s (expected %s)", filename, ext, FileExtension)
	}

	file, err := os.Open(filename)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Header{}, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	h, err := ReadHeader(file)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", filename, err)
	}
	if info.Size() < int64(h.TreeOffset()) {
		return Header{}, fmt.Errorf("%s: %w: %d bytes, character table needs %d",
			filename, ErrTruncated, info.Size(), h.TreeOffset())
	}

	log.Debugf("Dictionary file %s validated: %d chars, max word length %d", filename, h.CharCount, h.MaxWordLength)
	return h, nil
}
