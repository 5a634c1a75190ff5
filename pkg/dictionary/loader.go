package dictionary

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// LoadFile validates and loads a dictionary file from disk.
func LoadFile(filename string) (*Dictionary, error) {
	data, err := ReadFile(filename)
	if err != nil {
		return nil, err
	}

	dict, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary %s: %w", filename, err)
	}
	log.Debugf("Dictionary %s ready (%d bytes)", filename, len(data))
	return dict, nil
}

// LanguagePath is the path of the dictionary for lang inside dir.
func LanguagePath(dir, lang string) string {
	return filepath.Join(dir, lang+FileExtension)
}

// ReadFile returns the raw bytes of a dictionary file after checking its
// header. The bytes are meant to be handed to an engine, which does its own
// Load.
func ReadFile(filename string) ([]byte, error) {
	if _, err := ValidateFile(filename); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", filename, err)
	}
	return data, nil
}
