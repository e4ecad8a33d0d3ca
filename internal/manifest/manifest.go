// Package manifest scans a run directory for FASTQ files and writes the
// SampleList.csv that tells the uploader which files belong to which sample.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lamim/irida-prep/pkg/models"
)

const (
	// FileName is the manifest written into the run directory
	FileName = "SampleList.csv"
	// DataMarker is the first line of the manifest
	DataMarker = "[Data]"
	// Header is the column header following the marker
	Header = "Sample_Name,Project_ID,File_Forward,File_Reverse"

	// DefaultPairedPattern matches forward reads of a paired-end run
	DefaultPairedPattern = "*_R1_001.fastq.gz"
	// SingleEndPattern is always used for single-end runs
	SingleEndPattern = "*.fastq.gz"
)

var (
	// PairedDelimiter ends the sample id in paired-end file names
	PairedDelimiter = regexp.MustCompile(`_S[0-9]{1,3}|_R[12].|_1.non_host.fastq.gz|_2.non_host.fastq.gz`)
	// SingleDelimiter ends the sample id in single-end file names
	SingleDelimiter = regexp.MustCompile(`.fastq|.fq.`)
)

// Forward read tokens and their reverse counterparts, tried in order
var readPairs = []struct{ forward, reverse string }{
	{"_R1_", "_R2_"},
	{"_R1.non_host.fastq.gz", "_R2.non_host.fastq.gz"},
}

// Options controls a manifest build
type Options struct {
	Directory string
	Pattern   string         // Glob matched against file base names
	Delimiter *regexp.Regexp // Sample id is the text before its first match
	Paired    bool
	Sort      bool // Order samples by their numeric suffix
	ProjectID string
}

// NewOptions fills the mode-dependent defaults: the delimiter for the read layout,
// the default paired pattern when pattern is empty, and the fixed single-end pattern
func NewOptions(dir, pattern string, paired, sortSamples bool, projectID string) Options {
	opts := Options{
		Directory: dir,
		Pattern:   pattern,
		Paired:    paired,
		Sort:      sortSamples,
		ProjectID: projectID,
	}
	if paired {
		opts.Delimiter = PairedDelimiter
		if opts.Pattern == "" {
			opts.Pattern = DefaultPairedPattern
		}
	} else {
		opts.Delimiter = SingleDelimiter
		opts.Pattern = SingleEndPattern
	}
	return opts
}

// PairingError reports a forward read whose reverse file name cannot be derived
type PairingError struct {
	File string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("invalid file name: %s", e.File)
}

// SortKeyError reports a file whose sample id does not end in a number
type SortKeyError struct {
	File  string
	Token string
	Err   error
}

func (e *SortKeyError) Error() string {
	return fmt.Sprintf("cannot sort %s: %q is not a number", e.File, e.Token)
}

func (e *SortKeyError) Unwrap() error { return e.Err }

// Manifest is the in-memory form of SampleList.csv
type Manifest struct {
	Rows []models.ManifestRow
}

// Builder turns a directory listing into a manifest
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a new manifest builder
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger.With("component", "manifest")}
}

// Build scans opts.Directory and derives one row per matching file
func (b *Builder) Build(opts Options) (*Manifest, error) {
	if opts.Delimiter == nil {
		return nil, errors.New("manifest: delimiter regex is required")
	}
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
	}

	names, err := b.findFiles(opts.Directory, opts.Pattern)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Found files", "directory", opts.Directory, "pattern", opts.Pattern, "count", len(names))

	if opts.Sort {
		if names, err = sortByNumber(names, opts.Delimiter); err != nil {
			return nil, err
		}
	}

	m := &Manifest{Rows: make([]models.ManifestRow, 0, len(names))}
	for _, name := range names {
		row := models.ManifestRow{
			SampleID:    SampleID(name, opts.Delimiter),
			ProjectID:   opts.ProjectID,
			ForwardFile: name,
		}
		if opts.Paired {
			reverse, err := ReverseFile(name)
			if err != nil {
				return nil, err
			}
			row.ReverseFile = reverse
		}
		m.Rows = append(m.Rows, row)
	}

	return m, nil
}

// Write renders the manifest into dir, replacing any existing SampleList.csv
func (b *Builder) Write(m *Manifest, dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create sample list: %w", err)
	}

	w := bufio.NewWriter(file)
	fmt.Fprintln(w, DataMarker)
	fmt.Fprintln(w, Header)
	for _, row := range m.Rows {
		fmt.Fprintf(w, "%s, %s, %s, %s\n", row.SampleID, row.ProjectID, row.ForwardFile, row.ReverseFile)
	}

	if err := w.Flush(); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write sample list: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close sample list: %w", err)
	}

	b.logger.Info("Wrote sample list", "path", path, "samples", len(m.Rows))
	return path, nil
}

// Prepare builds the manifest for opts and writes it into opts.Directory.
// Nothing is written when the build fails.
func (b *Builder) Prepare(opts Options) (string, *Manifest, error) {
	m, err := b.Build(opts)
	if err != nil {
		return "", nil, err
	}
	path, err := b.Write(m, opts.Directory)
	if err != nil {
		return "", nil, err
	}
	return path, m, nil
}

// SampleID returns the part of name before the first delimiter match,
// or the whole name when the delimiter does not occur
func SampleID(name string, delimiter *regexp.Regexp) string {
	loc := delimiter.FindStringIndex(name)
	if loc == nil {
		return name
	}
	return name[:loc[0]]
}

// ReverseFile derives the reverse read name by token substitution.
// The result may name a file that does not exist.
func ReverseFile(forward string) (string, error) {
	for _, p := range readPairs {
		if strings.Contains(forward, p.forward) {
			return strings.ReplaceAll(forward, p.forward, p.reverse), nil
		}
	}
	return "", &PairingError{File: forward}
}

// findFiles walks dir recursively and returns the base names matching pattern in walk order.
// Entries below dir that cannot be read are skipped with a warning.
func (b *Builder) findFiles(dir, pattern string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			b.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return names, nil
}

// sortByNumber orders names by the integer after the last underscore of the sample id
func sortByNumber(names []string, delimiter *regexp.Regexp) ([]string, error) {
	keys := make(map[string]int, len(names))
	for _, name := range names {
		id := SampleID(name, delimiter)
		token := id[strings.LastIndex(id, "_")+1:]
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, &SortKeyError{File: name, Token: token, Err: err}
		}
		keys[name] = n
	}

	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return keys[sorted[i]] < keys[sorted[j]]
	})
	return sorted, nil
}
