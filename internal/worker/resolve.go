package worker

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

// ErrFinalFileMissing is returned when no output matches the captured stem.
var ErrFinalFileMissing = errors.New("could not locate final file")

var formatIDSuffix = regexp.MustCompile(`\.f\d+$`)

// BaseStem returns the name of path without directory, extension and
// the per-stream format id yt-dlp appends before merging (".f137").
func BaseStem(path string) string {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return formatIDSuffix.ReplaceAllString(stem, "")
}

func isPartial(name string) bool {
	return strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.Contains(name, ".part-Frag")
}

// ResolveFilename finds the final artifact for stem in dir.
// An entry starting with stem and carrying the format's extension wins;
// otherwise any entry containing stem is accepted, canonical extension first.
func ResolveFilename(dir, stem string, format domain.Format) (string, error) {
	if stem == "" {
		return "", ErrFinalFileMissing
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Join(ErrFinalFileMissing, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || isPartial(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	ext := format.Extension()
	for _, name := range names {
		if strings.HasPrefix(name, stem) && strings.EqualFold(filepath.Ext(name), ext) {
			return name, nil
		}
	}

	var loose string
	for _, name := range names {
		if !strings.Contains(name, stem) {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ext) {
			return name, nil
		}
		if loose == "" {
			loose = name
		}
	}
	if loose != "" {
		return loose, nil
	}
	return "", ErrFinalFileMissing
}
