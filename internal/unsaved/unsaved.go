// Package unsaved keeps the contents of modified buffers that have not been
// written to their files, and persists them as drafts so they survive a
// restart.
//
// Drafts are stored in a FileStore: a "manifest" key lists one URI per line
// and each draft is stored under the hex SHA-1 of its URI.
package unsaved

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/store"
)

// ManifestKey is the store key listing saved drafts.
const ManifestKey = "manifest"

// File is the unsaved content of one document.
type File struct {
	URI      string
	Content  []byte
	Sequence uint64 // increases with every update
	Modified time.Time
}

// Files is the set of unsaved documents of a project. It is safe for
// concurrent use.
type Files struct {
	mu       sync.Mutex
	files    map[string]*File
	sequence uint64

	drafts *store.FileStore
	logger *logging.Logger
}

// New creates an empty set backed by drafts. A nil store keeps drafts in
// memory only: Save and Restore become no-ops.
func New(drafts *store.FileStore, logger *logging.Logger) *Files {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Files{
		files:  make(map[string]*File),
		drafts: drafts,
		logger: logger.WithComponent("unsaved"),
	}
}

// Update records content as the unsaved state of uri.
func (f *Files) Update(uri string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence++
	f.files[uri] = &File{
		URI:      uri,
		Content:  append([]byte(nil), content...),
		Sequence: f.sequence,
		Modified: time.Now(),
	}
}

// Remove forgets uri, typically after the buffer was saved.
func (f *Files) Remove(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[uri]; ok {
		f.sequence++
		delete(f.files, uri)
	}
}

// Get returns a copy of the unsaved state of uri.
func (f *Files) Get(uri string) (File, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[uri]
	if !ok {
		return File{}, false
	}
	return *file, true
}

// Len returns the number of unsaved documents.
func (f *Files) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// Sequence changes whenever the set changes.
func (f *Files) Sequence() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sequence
}

// Snapshot returns the unsaved documents, least recently updated first.
func (f *Files) Snapshot() []File {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]File, 0, len(f.files))
	for _, file := range f.files {
		out = append(out, *file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Clear forgets every document and deletes the stored drafts.
func (f *Files) Clear() {
	f.mu.Lock()
	f.files = make(map[string]*File)
	f.sequence++
	f.mu.Unlock()

	if f.drafts != nil {
		if err := f.drafts.Clear(); err != nil {
			f.logger.Warn("failed to remove drafts", "error", err.Error())
		}
	}
}

// Save writes the manifest and a draft per document, and removes drafts of
// documents no longer present.
func (f *Files) Save(ctx context.Context) error {
	if f.drafts == nil {
		return nil
	}
	snapshot := f.Snapshot()

	var manifest bytes.Buffer
	keep := map[string]bool{ManifestKey: true}
	for _, file := range snapshot {
		key := DraftKey(file.URI)
		if err := f.drafts.Save(ctx, key, file.Content); err != nil {
			return errors.Wrapf(err, "failed to save draft for %s", file.URI)
		}
		keep[key] = true
		manifest.WriteString(file.URI)
		manifest.WriteByte('\n')
	}
	if err := f.drafts.Save(ctx, ManifestKey, manifest.Bytes()); err != nil {
		return errors.Wrap(err, "failed to save drafts manifest")
	}

	keys, err := f.drafts.List(ctx, "")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if !keep[key] {
			_ = f.drafts.Delete(ctx, key)
		}
	}

	f.logger.Debug("saved drafts", "count", len(snapshot))
	return nil
}

// Restore loads the drafts listed in the manifest. Drafts whose local file
// no longer exists, or whose content cannot be read, are skipped.
func (f *Files) Restore(ctx context.Context) error {
	if f.drafts == nil {
		return nil
	}
	data, err := f.drafts.Load(ctx, ManifestKey)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	restored := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		uri := strings.TrimSpace(scanner.Text())
		if uri == "" {
			continue
		}
		if !targetExists(uri) {
			f.logger.Debug("skipping draft for missing file", "uri", uri)
			continue
		}
		content, err := f.drafts.Load(ctx, DraftKey(uri))
		if err != nil {
			if errors.IsCanceled(err) {
				return err
			}
			f.logger.Warn("failed to load draft", "uri", uri, "error", err.Error())
			continue
		}
		f.Update(uri, content)
		restored++
	}
	if err := scanner.Err(); err != nil {
		return errors.NewInvalidDataError("drafts manifest", err.Error()).WithCause(err)
	}

	f.logger.Debug("restored drafts", "count", restored)
	return nil
}

// DraftKey returns the store key of the draft for uri.
func DraftKey(uri string) string {
	sum := sha1.Sum([]byte(uri))
	return hex.EncodeToString(sum[:])
}

// targetExists checks local files; other schemes are assumed to exist.
func targetExists(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	if u.Scheme != "file" {
		return true
	}
	_, err = os.Stat(u.Path)
	return err == nil
}
