// Package content partitions a local file into ordered, size-bounded fragments
// and tracks how far an upload has progressed through them.
package content

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/bitrise-io/go-multipart-uploader/internal"
)

// DefaultMaxFragmentSize is the largest fragment accepted by the remote service.
const DefaultMaxFragmentSize = 56000

// Content is the source of fragments for a single upload target.
// The file is only read fragment by fragment, never loaded as a whole.
type Content struct {
	fs              internal.FileSystem
	filePath        string
	remote          *url.URL
	maxFragmentSize int

	mu            sync.Mutex
	sessionID     string
	size          int64
	statErr       error
	contentString *string
	current       int
	total         int
	handedOut     bool
}

// Opt configures a Content.
type Opt func(*Content)

// WithFileSystem replaces the file system used to stat and read the file.
func WithFileSystem(fs internal.FileSystem) Opt {
	return func(c *Content) {
		c.fs = fs
	}
}

// New creates a Content for filePath and remote. The file size is read once here and fixes the
// total fragment count; a missing file is not an error yet, it only makes the content not ready.
func New(filePath string, remote *url.URL, maxFragmentSize int, opts ...Opt) (*Content, error) {
	if maxFragmentSize <= 0 {
		return nil, fmt.Errorf("max fragment size must be positive, got %d", maxFragmentSize)
	}

	c := &Content{
		fs:              internal.RealOS{},
		filePath:        filePath,
		remote:          remote,
		maxFragmentSize: maxFragmentSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if filePath != "" {
		info, err := c.fs.Stat(filePath)
		if err != nil {
			c.statErr = err
		} else if info.IsDir() {
			c.statErr = fmt.Errorf("%s is a directory", filePath)
		} else {
			c.size = info.Size()
		}
	}
	c.total = TotalFragments(c.size, maxFragmentSize)

	return c, nil
}

// TotalFragments returns the number of fragments a payload of size bytes is split into.
// An empty payload still produces one (empty) fragment.
func TotalFragments(size int64, fragmentSize int) int {
	if size <= 0 {
		return 1
	}
	f := int64(fragmentSize)
	return int((size + f - 1) / f)
}

// IsReady reports whether both the file and the destination are set and the payload is readable.
func (c *Content) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filePath == "" || c.remote == nil {
		return false
	}
	if c.contentString != nil {
		return true
	}
	if c.statErr != nil {
		return false
	}
	_, err := c.fs.Stat(c.filePath)
	return err == nil
}

// NextFragmentSize clamps a requested fragment size to the configured maximum.
func (c *Content) NextFragmentSize(requested int) int {
	if requested > c.maxFragmentSize {
		return c.maxFragmentSize
	}
	return requested
}

// CurrentFragment returns the 0-based index of the next fragment to upload.
func (c *Content) CurrentFragment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// TotalFragments returns the number of fragments of this content.
func (c *Content) TotalFragments() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Size returns the payload size in bytes.
func (c *Content) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// FilePath returns the local file path.
func (c *Content) FilePath() string {
	return c.filePath
}

// Remote returns the destination URL.
func (c *Content) Remote() *url.URL {
	return c.remote
}

// Advance moves the cursor to the next fragment.
// It fails with ErrOutOfRange, leaving the cursor untouched, once every fragment was advanced over.
func (c *Content) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current >= c.total {
		return fmt.Errorf("advance past fragment %d of %d: %w", c.current, c.total, ErrOutOfRange)
	}
	c.current++
	return nil
}

// SetSessionID binds the content to an upload session.
// It can be called repeatedly until the first fragment is handed out.
func (c *Content) SetSessionID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handedOut {
		return fmt.Errorf("set session id after upload started: %w", ErrInvalidState)
	}
	c.sessionID = id
	return nil
}

// SessionID returns the session identifier, empty if not set.
func (c *Content) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// BeginSession fixes the session for the rest of the upload and returns it.
// Without a session identifier it fails with ErrInvalidState and nothing is fixed.
func (c *Content) BeginSession() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return "", fmt.Errorf("begin upload without session id: %w", ErrInvalidState)
	}
	c.handedOut = true
	return c.sessionID, nil
}

// SetContentString replaces the file bytes with an in-memory payload.
// The total fragment count is recomputed, so it is rejected once a fragment was handed out.
func (c *Content) SetContentString(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handedOut {
		return fmt.Errorf("set content string after upload started: %w", ErrInvalidState)
	}
	c.contentString = &s
	c.size = int64(len(s))
	c.total = TotalFragments(c.size, c.maxFragmentSize)
	return nil
}

// ContentString returns the in-memory payload, if one was set.
func (c *Content) ContentString() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.contentString == nil {
		return "", false
	}
	return *c.contentString, true
}

// FragmentLength returns the byte length of the fragment at index.
func (c *Content) FragmentLength(index int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fragmentLength(index)
}

func (c *Content) fragmentLength(index int) (int, error) {
	if index < 0 || index >= c.total {
		return 0, fmt.Errorf("fragment %d of %d: %w", index, c.total, ErrOutOfRange)
	}
	offset := int64(index) * int64(c.maxFragmentSize)
	remaining := c.size - offset
	if remaining <= 0 {
		return 0, nil
	}
	return c.NextFragmentSize(int(minInt64(remaining, int64(c.maxFragmentSize)))), nil
}

// Fragment reads the bytes of the fragment at index.
func (c *Content) Fragment(index int) ([]byte, error) {
	c.mu.Lock()
	length, err := c.fragmentLength(index)
	contentString := c.contentString
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	offset := int64(index) * int64(c.maxFragmentSize)
	if contentString != nil {
		return []byte((*contentString)[offset : offset+int64(length)]), nil
	}
	if length == 0 {
		return []byte{}, nil
	}

	file, err := c.fs.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.NewSectionReader(file, offset, int64(length)))
	if err != nil {
		return nil, fmt.Errorf("read fragment %d: %w", index+1, err)
	}
	if len(data) != length {
		return nil, fmt.Errorf("fragment %d size mismatch, expected %d, got %d", index+1, length, len(data))
	}

	return data, nil
}

// Next reads the fragment under the cursor and marks the content as started:
// from now on the session and the payload are fixed.
func (c *Content) Next() ([]byte, error) {
	c.mu.Lock()
	index := c.current
	c.handedOut = true
	c.mu.Unlock()

	return c.Fragment(index)
}

// Started reports whether a fragment was already handed out for upload.
func (c *Content) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handedOut
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
