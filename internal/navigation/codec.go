package navigation

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/store"
)

const (
	// DefaultMaxFileBytes is the largest history file Load accepts.
	DefaultMaxFileBytes = 10 * 1024 * 1024

	// DefaultMaxPerTarget is how many entries per file Save keeps.
	DefaultMaxPerTarget = 5
)

// CodecOption configures Load, Save, Encode and Decode.
type CodecOption func(*codecConfig)

type codecConfig struct {
	maxBytes     int64
	maxPerTarget int
}

// WithMaxFileBytes overrides the load size limit.
func WithMaxFileBytes(n int64) CodecOption {
	return func(c *codecConfig) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithMaxPerTarget overrides how many entries per target file are written.
func WithMaxPerTarget(n int) CodecOption {
	return func(c *codecConfig) {
		if n > 0 {
			c.maxPerTarget = n
		}
	}
}

func newCodecConfig(opts []CodecOption) codecConfig {
	cfg := codecConfig{maxBytes: DefaultMaxFileBytes, maxPerTarget: DefaultMaxPerTarget}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Load reads the history file at path and pushes its entries, last line
// first, so the first line of the file ends up current. A missing file
// leaves the history untouched. Files over the size limit or holding
// invalid UTF-8 are rejected with an error matching errors.ErrInvalidData.
func (h *History) Load(ctx context.Context, path string, opts ...CodecOption) error {
	cfg := newCodecConfig(opts)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.logger.Debug("no navigation history to load", "path", path)
			return nil
		}
		return errors.NewHistoryError("failed to open history", err).WithPath(path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewHistoryError("failed to stat history", err).WithPath(path)
	}
	if info.Size() > cfg.maxBytes {
		return errors.NewHistoryError("refusing to load history",
			errors.NewInvalidDataError("history", fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), cfg.maxBytes))).
			WithPath(path)
	}

	if err := h.decode(ctx, f, cfg); err != nil {
		if he, ok := err.(*errors.HistoryError); ok {
			return he.WithPath(path)
		}
		return err
	}
	return nil
}

// Decode reads history lines from r, as Load does for a file.
func (h *History) Decode(ctx context.Context, r io.Reader, opts ...CodecOption) error {
	return h.decode(ctx, r, newCodecConfig(opts))
}

func (h *History) decode(ctx context.Context, r io.Reader, cfg codecConfig) error {
	data, err := io.ReadAll(io.LimitReader(r, cfg.maxBytes+1))
	if err != nil {
		return errors.NewHistoryError("failed to read history", err)
	}
	if int64(len(data)) > cfg.maxBytes {
		return errors.NewHistoryError("refusing to load history",
			errors.NewInvalidDataError("history", fmt.Sprintf("content exceeds %d bytes", cfg.maxBytes)))
	}
	if !utf8.Valid(data) {
		return errors.NewHistoryError("refusing to load history",
			errors.NewInvalidDataError("history", "content is not valid UTF-8"))
	}

	var items []*Item
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		item, err := ParseItem(upgradeLegacyLine(line))
		if err != nil {
			h.logger.Warn("skipping malformed history line", "line", lineNo, "error", err.Error())
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return errors.NewHistoryError("failed to read history", err)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewCanceledError("history load", err)
	}

	h.mu.Lock()
	for i := len(items) - 1; i >= 0; i-- {
		h.pushLocked(items[i])
	}
	changed := h.changedEventLocked()
	h.mu.Unlock()

	h.logger.Debug("loaded navigation history", "entries", len(items))
	if len(items) > 0 {
		h.bus.Publish(changed)
	}
	return nil
}

// upgradeLegacyLine rewrites "<line> <offset> <uri>" as
// "<uri>#L<line>_<offset>". Anything else is returned unchanged.
func upgradeLegacyLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return line
	}
	if _, err := strconv.ParseUint(fields[0], 10, 32); err != nil {
		return line
	}
	if _, err := strconv.ParseUint(fields[1], 10, 32); err != nil {
		return line
	}
	return fmt.Sprintf("%s#L%s_%s", fields[2], fields[0], fields[1])
}

// Save writes the history to path, replacing any previous file atomically.
// Entries are written most recent first and at most the per-target limit is
// kept for each file.
func (h *History) Save(ctx context.Context, path string, opts ...CodecOption) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	n, err := h.encode(ctx, buf, newCodecConfig(opts))
	if err != nil {
		return err
	}
	if err := store.WriteFile(path, buf.B, 0o644); err != nil {
		return errors.NewHistoryError("failed to write history", err).WithPath(path)
	}
	h.logger.Debug("saved navigation history", "path", path, "entries", n)
	return nil
}

// Encode writes the history lines to w, as Save does for a file.
func (h *History) Encode(ctx context.Context, w io.Writer, opts ...CodecOption) error {
	_, err := h.encode(ctx, w, newCodecConfig(opts))
	return err
}

func (h *History) encode(ctx context.Context, w io.Writer, cfg codecConfig) (int, error) {
	h.mu.Lock()
	ordered := make([]*Item, 0, len(h.backward)+len(h.forward)+1)
	for i := len(h.forward) - 1; i >= 0; i-- {
		ordered = append(ordered, h.forward[i])
	}
	if h.current != nil {
		ordered = append(ordered, h.current)
	}
	ordered = append(ordered, h.backward...)
	h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, errors.NewCanceledError("history save", err)
	}

	seen := make(map[Key]int)
	written := 0
	for _, item := range ordered {
		key := item.Key()
		if seen[key] >= cfg.maxPerTarget {
			continue
		}
		seen[key]++
		if _, err := io.WriteString(w, item.URI()+"\n"); err != nil {
			return written, errors.NewHistoryError("failed to encode history", err)
		}
		written++
	}
	return written, nil
}
