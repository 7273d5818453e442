// Package export writes batches of identity records to timestamped files as
// JSON, CSV or YAML. JSON and YAML output can be password encrypted.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"gopkg.in/yaml.v3"

	"github.com/zarlcorp/zident/internal/identity"
)

// Output locations relative to the writer's filesystem root.
const (
	DataDir      = "data"
	DetailLogDir = "logs/manual_logs"

	timestampLayout = "20060102_150405"
)

var (
	// ErrEncryptionUnsupported is returned when a password is given for CSV.
	ErrEncryptionUnsupported = errors.New("encryption is not supported for CSV format")

	// ErrEmptyBatch is returned when there is nothing to write.
	ErrEmptyBatch = errors.New("no identities to export")

	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown format")
)

// Format is an output serialization.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	YAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, CSV, YAML}

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, CSV, YAML:
		return f, nil
	}
	return "", fmt.Errorf("%w %q (choose from json, csv, yaml)", ErrUnknownFormat, s)
}

// Encryptable reports whether output in f may be encrypted.
func (f Format) Encryptable() bool { return f != CSV }

// Writer writes exports and detail logs to a filesystem.
type Writer struct {
	fs  zfilesystem.ReadWriteFileFS
	now func() time.Time
	log *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the time used in file names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the logger written files are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// NewWriter returns a Writer rooted at fsys.
func NewWriter(fsys zfilesystem.ReadWriteFileFS, opts ...Option) *Writer {
	w := &Writer{fs: fsys, now: time.Now, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes records in format f to data/identities_<timestamp>.<ext>
// and returns the path. A non-empty password encrypts the payload; it is
// rejected for CSV before anything is written.
func (w *Writer) Write(records []identity.Record, f Format, password string) (string, error) {
	if len(records) == 0 {
		return "", ErrEmptyBatch
	}
	if password != "" && !f.Encryptable() {
		return "", ErrEncryptionUnsupported
	}

	data, err := Encode(records, f)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	if password != "" {
		if data, err = Encrypt(data, password); err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
	}

	if err := w.fs.MkdirAll(DataDir, 0o700); err != nil {
		return "", fmt.Errorf("export: create %s: %w", DataDir, err)
	}

	path := fmt.Sprintf("%s/identities_%s.%s", DataDir, w.now().Format(timestampLayout), f)
	if err := w.fs.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}

	w.log.Info("identities saved", "path", path, "count", len(records), "encrypted", password != "")
	return path, nil
}

// WriteDetailLog writes one record as a readable key: value listing to
// logs/manual_logs/identity_details_<timestamp>[_<index>].log. The index
// suffix (1-based) is added when total is greater than one.
func (w *Writer) WriteDetailLog(r identity.Record, index, total int) (string, error) {
	if err := w.fs.MkdirAll(DetailLogDir, 0o700); err != nil {
		return "", fmt.Errorf("detail log: create %s: %w", DetailLogDir, err)
	}

	name := "identity_details_" + w.now().Format(timestampLayout)
	if total > 1 {
		name += fmt.Sprintf("_%d", index)
	}
	path := DetailLogDir + "/" + name + ".log"

	var buf bytes.Buffer
	buf.WriteString("Generated Identity Details\n")
	buf.WriteString("==========================\n")
	for _, f := range r {
		if nested, ok := f.Value.(identity.Record); ok {
			fmt.Fprintf(&buf, "%s:\n", f.Key)
			for _, sub := range nested {
				fmt.Fprintf(&buf, "  %s: %v\n", sub.Key, sub.Value)
			}
			continue
		}
		fmt.Fprintf(&buf, "%s: %v\n", f.Key, f.Value)
	}

	if err := w.fs.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("detail log: write %s: %w", path, err)
	}

	w.log.Info("identity log saved", "path", path)
	return path, nil
}

// ReadDecrypted reads an encrypted export back and returns its plaintext.
func (w *Writer) ReadDecrypted(path, password string) ([]byte, error) {
	token, err := w.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decrypt(bytes.TrimSpace(token), password)
}

// Encode serializes records without encryption.
func Encode(records []identity.Record, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return encodeJSON(records)
	case YAML:
		return encodeYAML(records)
	case CSV:
		return encodeCSV(records)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, string(f))
}

// encodeJSON writes a compact array with <, > and & left as they are.
func encodeJSON(records []identity.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeYAML(records []identity.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeCSV takes its header from the first record's flattened keys. Later
// records are written against that header: missing keys are left empty and
// keys outside it are dropped.
func encodeCSV(records []identity.Record) ([]byte, error) {
	header := records[0].Flatten().Keys()

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range records {
		flat := r.Flatten()
		for i, key := range header {
			v, ok := flat.Get(key)
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = fmt.Sprint(v)
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
