package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ferrite/internal/diag"
	"ferrite/internal/project"
	"ferrite/internal/source"
)

// Bumped whenever DiskPayload changes shape.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores per-file check results keyed by an input digest.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the serialized result for one input file. Diagnostics are
// stored with line numbers only; file IDs are per-run and get reassigned on
// load.
type DiskPayload struct {
	Schema uint16
	Path   string
	Diags  []CachedDiag
}

// CachedDiag is the portable form of one diagnostic.
type CachedDiag struct {
	Severity  uint8
	Code      uint16
	Message   string
	Function  string
	StartLine uint32
	EndLine   uint32
	Notes     []CachedNote
}

// CachedNote mirrors diag.Note without the file ID.
type CachedNote struct {
	StartLine uint32
	EndLine   uint32
	Message   string
}

// OpenDiskCache initializes a disk cache at the standard user location
// ($XDG_CACHE_HOME/<app> or ~/.cache/<app>).
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes a disk cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// "results" subdirectory keeps the cache easy to inspect and clear.
	return filepath.Join(c.dir, "results", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a payload. The write goes through a temp file
// and a rename so concurrent readers never see a torn entry.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or a schema mismatch is a clean miss.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the whole cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// bagToPayload converts a bag into its cacheable form.
func bagToPayload(path string, bag *diag.Bag) *DiskPayload {
	items := bag.Items()
	payload := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   path,
		Diags:  make([]CachedDiag, 0, len(items)),
	}
	for i := range items {
		d := &items[i]
		cd := CachedDiag{
			Severity:  uint8(d.Severity),
			Code:      uint16(d.Code),
			Message:   d.Message,
			Function:  d.Function,
			StartLine: d.Primary.Start,
			EndLine:   d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{
				StartLine: n.Span.Start,
				EndLine:   n.Span.End,
				Message:   n.Msg,
			})
		}
		payload.Diags = append(payload.Diags, cd)
	}
	return payload
}

// payloadToBag rebuilds a bag, reattaching the current run's file ID.
func payloadToBag(payload *DiskPayload, file source.FileID, maxDiagnostics int) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	for i := range payload.Diags {
		cd := &payload.Diags[i]
		d := diag.Diagnostic{
			Severity: diag.Severity(cd.Severity),
			Code:     diag.Code(cd.Code),
			Message:  cd.Message,
			Function: cd.Function,
			Primary:  source.Lines(file, cd.StartLine, cd.EndLine),
		}
		for _, n := range cd.Notes {
			d = d.WithNote(source.Lines(file, n.StartLine, n.EndLine), n.Message)
		}
		bag.Add(d)
	}
	return bag
}
