package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Ledger is a durable set of authors who completed verification at least once.
// Membership only grows. The backing file holds one identity per line.
//
// Several processes may open the same path. Writers serialize on an advisory lock
// held on "<path>.lock" and read what the others appended before deciding.
type Ledger struct {
	path   string
	file   *os.File
	lock   *flock.Flock
	offset int64 // bytes of complete lines already loaded
	data   map[string]struct{}
	mutex  *deadlock.Mutex
	log    *zap.Logger
}

// Open loads the ledger at path, creating the file if needed. A trailing line without
// a newline left by a crashed writer is discarded and the file truncated back to the
// last complete entry so later appends start on a fresh line.
func Open(path string, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l := &Ledger{
		path:  path,
		file:  f,
		lock:  flock.New(path + ".lock"),
		data:  make(map[string]struct{}),
		mutex: &deadlock.Mutex{},
		log:   log,
	}
	if err := l.lock.Lock(); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	err = l.refresh(true)
	if uerr := l.lock.Unlock(); err == nil && uerr != nil {
		err = fmt.Errorf("unlock ledger: %w", uerr)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	log.Info("ledger loaded", zap.String("path", path), zap.Int("verified", len(l.data)))
	return l, nil
}

// Load reads the ledger at path without creating, locking or modifying it. A partial
// trailing line is ignored.
func Load(path string, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	data := make(map[string]struct{})
	if n := parse(raw, data, log); n < len(raw) {
		log.Debug("ignoring partial ledger entry", zap.String("path", path), zap.ByteString("entry", raw[n:]))
	}
	return sorted(data), nil
}

// Contains reports whether identity has been recorded, by this process or another.
func (l *Ledger) Contains(identity string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[identity]; ok {
		return true
	}
	if err := l.lock.RLock(); err != nil {
		l.log.Warn("ledger refresh skipped", zap.Error(err))
		return false
	}
	defer l.lock.Unlock()
	if err := l.refresh(false); err != nil {
		l.log.Warn("ledger refresh failed", zap.Error(err))
	}
	_, ok := l.data[identity]
	return ok
}

// Record adds identity and reports whether it was new. Checking and inserting happen
// under the process mutex and the file lock, so callers racing on the same identity,
// in one process or several, see exactly one true. The entry is on disk before it
// becomes visible in memory.
func (l *Ledger) Record(identity string) (bool, error) {
	if !valid(identity) {
		return false, fmt.Errorf("ledger: invalid identity %q", identity)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[identity]; ok {
		return false, nil
	}

	if err := l.lock.Lock(); err != nil {
		return false, fmt.Errorf("lock ledger: %w", err)
	}
	defer l.lock.Unlock()
	if err := l.refresh(true); err != nil {
		return false, err
	}
	if _, ok := l.data[identity]; ok {
		return false, nil
	}

	line := identity + "\n"
	if err := l.append(line); err != nil {
		return false, err
	}
	l.offset += int64(len(line))
	l.data[identity] = struct{}{}
	l.log.Info("identity recorded", zap.String("identity", identity))
	return true, nil
}

// append writes line durably. On failure the file is cut back to its previous size so
// a short write never merges with the next entry.
func (l *Ledger) append(line string) error {
	_, err := l.file.WriteString(line)
	if err == nil {
		err = l.file.Sync()
	}
	if err == nil {
		return nil
	}
	if terr := l.file.Truncate(l.offset); terr != nil {
		l.log.Error("ledger rollback failed", zap.String("path", l.path), zap.Error(terr))
	}
	return fmt.Errorf("append ledger: %w", err)
}

// refresh loads complete lines appended since the last read. With repair set, which
// requires the exclusive lock, a partial tail is truncated away.
func (l *Ledger) refresh(repair bool) error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	size := info.Size()
	if size < l.offset {
		return fmt.Errorf("ledger %s shrank from %d to %d bytes", l.path, l.offset, size)
	}
	if size == l.offset {
		return nil
	}
	buf := make([]byte, size-l.offset)
	if _, err := l.file.ReadAt(buf, l.offset); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read ledger: %w", err)
	}
	n := parse(buf, l.data, l.log)
	l.offset += int64(n)
	if n < len(buf) && repair {
		l.log.Warn("dropping partial ledger entry",
			zap.String("path", l.path), zap.ByteString("entry", buf[n:]))
		if err := l.file.Truncate(l.offset); err != nil {
			return fmt.Errorf("truncate ledger: %w", err)
		}
	}
	return nil
}

// Snapshot returns the recorded identities in sorted order.
func (l *Ledger) Snapshot() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return sorted(l.data)
}

// Len returns the number of recorded identities.
func (l *Ledger) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.data)
}

// Close closes the backing file.
func (l *Ledger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.file.Close()
}

// parse adds every valid complete line of raw to data and returns the number of bytes
// consumed. Bytes after the last newline are left unconsumed.
func parse(raw []byte, data map[string]struct{}, log *zap.Logger) int {
	end := bytes.LastIndexByte(raw, '\n') + 1
	for _, line := range bytes.Split(raw[:end], []byte("\n")) {
		entry := string(bytes.TrimSuffix(line, []byte("\r")))
		if entry == "" {
			continue
		}
		if !valid(entry) {
			log.Warn("skipping malformed ledger entry", zap.String("entry", entry))
			continue
		}
		data[entry] = struct{}{}
	}
	return end
}

func sorted(data map[string]struct{}) []string {
	out := make([]string, 0, len(data))
	for id := range data {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func valid(identity string) bool {
	if identity == "" || !utf8.ValidString(identity) {
		return false
	}
	for _, r := range identity {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
