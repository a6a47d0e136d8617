package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
)

// sourceIDProbe reads only the dedup key out of a note's frontmatter
type sourceIDProbe struct {
	SourceID string `yaml:"source_id"`
}

// scanSourceIDs walks the meetings directory and indexes existing notes by
// their source_id frontmatter key. Files without frontmatter or without a
// source_id are ignored; they are not ours to manage.
func (w *Writer) scanSourceIDs() (map[string]string, error) {
	index := make(map[string]string)

	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		file, openErr := os.Open(path)
		if openErr != nil {
			w.logger.Warn().Err(openErr).Str("path", path).Msg("Skipping unreadable note during scan")
			return nil
		}
		defer file.Close()

		var probe sourceIDProbe
		if _, parseErr := frontmatter.Parse(file, &probe); parseErr != nil {
			return nil
		}

		if probe.SourceID != "" {
			index[probe.SourceID] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return index, nil
}
