// Package marker keeps the on-disk "process started" markers.
//
// One marker file exists per OIB while a card making process runs. The file
// is named "<oib>--<yyyy-MM-dd--HH-mm-ss>.txt" and holds a single record line
// "id:oib:firstName:lastName:status" with the last known snapshot of the
// request that owns the process.
//
// Markers are plain files with no transactional link to the client table.
// The Store serializes its own operations, but callers that combine a
// lookup with a write must hold their own lock across both.
package marker

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deppfellow/cardapi/internal/model"
	"github.com/spf13/afero"
)

const (
	// NameDelimiter separates the OIB from the timestamp in a file name.
	NameDelimiter = "--"
	// DataDelimiter separates fields inside the record line.
	DataDelimiter = ":"
	// TimeLayout is the timestamp layout used in file names.
	TimeLayout = "2006-01-02--15-04-05"
	// Extension of every marker file.
	Extension = ".txt"
)

// ErrCorrupted is returned when a marker exists but its record cannot be parsed.
var ErrCorrupted = errors.New("marker file corrupted")

// ErrUnsafeName is returned by Start when a name would not survive the
// single-line, colon-delimited record.
var ErrUnsafeName = errors.New("name contains a marker delimiter or line break")

// forbiddenNameChars cannot appear in a stored name.
const forbiddenNameChars = DataDelimiter + "\r\n"

// Record is the snapshot stored inside a marker file.
type Record struct {
	ID        int64        `json:"id"`
	OIB       int64        `json:"oib"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Status    model.Status `json:"status"`

	// File is the marker's file name inside the store directory.
	File string `json:"file"`
}

// Store manages marker files inside a single directory.
type Store struct {
	fs  afero.Fs
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for file name timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store rooted at dir on fs. The directory is created lazily.
func NewStore(fs afero.Fs, dir string, opts ...Option) *Store {
	s := &Store{
		fs:  fs,
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the marker directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName builds the marker file name for oib created at t.
func FileName(oib int64, t time.Time) string {
	return strconv.FormatInt(oib, 10) + NameDelimiter + t.Format(TimeLayout) + Extension
}

// FormatRecord renders the record line written for c.
func FormatRecord(c model.Client) string {
	return strings.Join([]string{
		strconv.FormatInt(c.ID, 10),
		strconv.FormatInt(c.OIB, 10),
		c.FirstName,
		c.LastName,
		string(c.Status),
	}, DataDelimiter)
}

// ParseRecord parses a record line. Start refuses names containing the
// delimiter, but markers written by older builds may carry one in LastName.
func ParseRecord(line string) (*Record, error) {
	fields := strings.Split(strings.TrimSpace(line), DataDelimiter)
	if len(fields) < 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrCorrupted, len(fields))
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrCorrupted, fields[0])
	}
	oib, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad oib %q", ErrCorrupted, fields[1])
	}

	return &Record{
		ID:        id,
		OIB:       oib,
		FirstName: fields[2],
		LastName:  strings.Join(fields[3:len(fields)-1], DataDelimiter),
		Status:    model.Status(fields[len(fields)-1]),
	}, nil
}

// Lookup returns the marker record for oib, or nil when no process is started.
//
// A marker that exists but cannot be parsed yields an error wrapping
// ErrCorrupted; callers are expected to overwrite it.
func (s *Store) Lookup(oib int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.namesFor(oib)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	// Timestamps sort lexicographically, so the last name is the newest.
	return s.read(names[len(names)-1])
}

// Start replaces any marker of c.OIB with a fresh one holding c's snapshot.
// It returns the new file name.
func (s *Store) Start(c model.Client) (string, error) {
	if strings.ContainsAny(c.FirstName, forbiddenNameChars) || strings.ContainsAny(c.LastName, forbiddenNameChars) {
		return "", fmt.Errorf("client %d: %w", c.ID, ErrUnsafeName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.removeFor(c.OIB); err != nil {
		return "", err
	}

	name := FileName(c.OIB, s.now())
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, name), []byte(FormatRecord(c)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write marker %s: %w", name, err)
	}
	return name, nil
}

// Stop removes every marker of oib and reports whether one existed.
func (s *Store) Stop(oib int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.removeFor(oib)
	return removed > 0, err
}

// StopAll removes every marker file. It returns the records that could be
// parsed before removal; corrupted markers are removed all the same.
func (s *Store) StopAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.names()
	if err != nil {
		return nil, err
	}

	var records []Record
	var errs []error
	for _, name := range names {
		if rec, err := s.read(name); err == nil {
			records = append(records, *rec)
		}
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove marker %s: %w", name, err))
		}
	}
	return records, errors.Join(errs...)
}

// List parses every marker in the directory. Corrupted markers are returned
// separately by file name.
func (s *Store) List() (records []Record, corrupted []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.names()
	if err != nil {
		return nil, nil, err
	}

	for _, name := range names {
		rec, err := s.read(name)
		if err != nil {
			if errors.Is(err, ErrCorrupted) {
				corrupted = append(corrupted, name)
				continue
			}
			return nil, nil, err
		}
		records = append(records, *rec)
	}
	return records, corrupted, nil
}

// Remove deletes a single marker by file name.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker %s: %w", name, err)
	}
	return nil
}

// Writable checks that the directory exists and accepts new files.
func (s *Store) Writable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := afero.TempFile(s.fs, s.dir, ".writable-")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return s.fs.Remove(name)
}

// names lists marker files in the directory, sorted by name.
func (s *Store) names() ([]string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create marker directory %s: %w", s.dir, err)
	}

	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list marker directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), Extension) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// namesFor lists the markers of a single OIB. Matching is on the full
// "<oib>--" prefix so one OIB never matches another.
func (s *Store) namesFor(oib int64) ([]string, error) {
	all, err := s.names()
	if err != nil {
		return nil, err
	}

	prefix := strconv.FormatInt(oib, 10) + NameDelimiter
	var names []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *Store) removeFor(oib int64) (int, error) {
	names, err := s.namesFor(oib)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to remove marker %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// read parses the last line containing the data delimiter.
func (s *Store) read(name string) (*Record, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read marker %s: %w", name, err)
	}

	var last string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := scanner.Text(); strings.Contains(line, DataDelimiter) {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, name, err)
	}
	if last == "" {
		return nil, fmt.Errorf("%w: %s has no record line", ErrCorrupted, name)
	}

	rec, err := ParseRecord(last)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rec.File = name
	return rec, nil
}
