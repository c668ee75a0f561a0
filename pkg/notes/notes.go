// Package notes renders the deterministic part of a release: a body
// listing each platform archive with its size and sha256 checksum, and
// a checksums.txt in the usual "<sha256>  <name>" format.
package notes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

const bodyTemplate = `## {{ .Binary }} {{ .Tag }}

Released {{ .Date }}.

| Platform | Archive | Size (bytes) | SHA256 |
| --- | --- | --- | --- |
{{- range .Entries }}
| {{ .Platform }} | {{ .Name }} | {{ .Size }} | {{ .SHA256 }} |
{{- end }}
`

var tmpl = template.Must(template.New("notes").Parse(bodyTemplate))

// Entry describes one archive attached to the release.
type Entry struct {
	Name   string
	SHA256 string
	Size   int64
}

// Platform is the archive name without its extension.
func (e Entry) Platform() string {
	return strings.TrimSuffix(e.Name, filepath.Ext(e.Name))
}

// ChecksumFile computes the [Entry] for the file at path.
func ChecksumFile(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("failed to close file", slog.Any("err", closeErr))
		}
	}()

	hasher := sha256.New()

	size, err := io.Copy(hasher, f)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to hash %q: %w", path, err)
	}

	return Entry{
		Name:   filepath.Base(path),
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
		Size:   size,
	}, nil
}

// ChecksumFiles computes entries for all paths, in order.
func ChecksumFiles(paths []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(paths))

	for _, path := range paths {
		entry, err := ChecksumFile(path)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// ChecksumsText renders entries as a checksums.txt body.
func ChecksumsText(entries []Entry) string {
	b := &strings.Builder{}
	for _, entry := range entries {
		fmt.Fprintf(b, "%s  %s\n", entry.SHA256, entry.Name)
	}

	return b.String()
}

// Render produces the release body for one tagged release.
func Render(binary, tag string, date time.Time, entries []Entry) (string, error) {
	b := &strings.Builder{}

	err := tmpl.Execute(b, struct {
		Binary  string
		Tag     string
		Date    string
		Entries []Entry
	}{
		Binary:  binary,
		Tag:     tag,
		Date:    date.UTC().Format("2006-01-02"),
		Entries: entries,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render release notes: %w", err)
	}

	return b.String(), nil
}
