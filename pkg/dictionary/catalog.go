package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// LanguageInfo describes one dictionary file found on disk.
type LanguageInfo struct {
	Language      string `msgpack:"language"`
	Filename      string `msgpack:"filename"`
	Size          int64  `msgpack:"size"`
	Chars         int    `msgpack:"chars"`
	MaxWordLength int    `msgpack:"max_word_length"`
}

// Catalog lists the dictionaries available in a directory.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog over dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the directory the catalog scans.
func (c *Catalog) Dir() string {
	return c.dir
}

// Languages scans the directory for valid dictionary files, sorted by
// language name. Invalid files are skipped with a warning.
func (c *Catalog) Languages() ([]LanguageInfo, error) {
	pattern := filepath.Join(c.dir, "*"+FileExtension)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for dictionary files: %w", err)
	}

	langs := make([]LanguageInfo, 0, len(files))
	for _, file := range files {
		h, err := ValidateFile(file)
		if err != nil {
			log.Warnf("Skipping dictionary %s: %v", file, err)
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			log.Warnf("Skipping dictionary %s: %v", file, err)
			continue
		}
		langs = append(langs, LanguageInfo{
			Language:      strings.TrimSuffix(filepath.Base(file), FileExtension),
			Filename:      file,
			Size:          info.Size(),
			Chars:         h.CharCount,
			MaxWordLength: h.MaxWordLength,
		})
	}

	sort.Slice(langs, func(i, j int) bool {
		return langs[i].Language < langs[j].Language
	})
	log.Debugf("Found %d dictionaries in %s", len(langs), c.dir)
	return langs, nil
}

// Has reports whether a valid dictionary for lang exists.
func (c *Catalog) Has(lang string) bool {
	_, err := ValidateFile(LanguagePath(c.dir, lang))
	return err == nil
}
