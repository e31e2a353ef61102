// Package datasets implements the speech corpus manifest, padding and the batch generator.
package datasets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// ManifestName is the manifest file expected inside a corpus directory.
const ManifestName = "list.txt"

// Record pairs an audio file with its transcript.
type Record struct {
	Audio      string
	Transcript string
}

// LoadManifest reads dir/list.txt. Every line must hold exactly two fields
// separated by '|'. Other lines are skipped with a warning.
func LoadManifest(dir string) (ret []Record, err error) {
	name := filepath.Join(dir, ManifestName)
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		columns := strings.Split(strings.TrimSpace(scanner.Text()), "|")
		if len(columns) != 2 {
			log.Warn("Skipping manifest line", "file", name, "line", line, "fields", len(columns))
			continue
		}
		ret = append(ret, Record{Audio: columns[0], Transcript: columns[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ret, nil
}

// DefaultExt is appended to manifest names without an extension.
const DefaultExt = ".wav"

// AudioPath resolves the audio file of r inside dir. Names without an
// extension get ext appended, DefaultExt when ext is empty.
func AudioPath(dir string, r Record, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	name := r.Audio
	if filepath.Ext(name) == "" {
		name += ext
	}
	return filepath.Join(dir, name)
}

// Transcripts returns the transcript column.
func Transcripts(records []Record) []string {
	ret := make([]string, len(records))
	for i, r := range records {
		ret[i] = r.Transcript
	}
	return ret
}
