package intake

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/your-org/discoveryflow/internal/audit"
	"github.com/your-org/discoveryflow/pkg/speech"
	"github.com/your-org/discoveryflow/pkg/storage/objectstore"
)

// fakeStore implements the storage capabilities the pipeline touches,
// backed by a map of "bucket/key" to bytes.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	written map[string][]byte

	downloadErr error
	removeErr   error
	uploadErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		written: make(map[string][]byte),
	}
}

func storeKey(bucket, key string) string {
	return fmt.Sprintf("%s/%s", bucket, key)
}

func (f *fakeStore) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	addr := storeKey(bucket, key)
	delete(f.objects, addr)
	f.removed = append(f.removed, addr)
	return nil
}

func (f *fakeStore) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return f.downloadErr
	}
	data, ok := f.objects[storeKey(bucket, key)]
	if !ok {
		return objectstore.ErrNotFound
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (f *fakeStore) UploadFile(ctx context.Context, bucket, key, localPath string, opts objectstore.WriteOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.written[storeKey(bucket, key)] = data
	return nil
}

func (f *fakeStore) removedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *fakeStore) writtenData(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.written[storeKey(bucket, key)]
	return data, ok
}

// fakeAudit records appended entries in order.
type fakeAudit struct {
	mu        sync.Mutex
	entries   []fakeEntry
	appendErr error
}

type fakeEntry struct {
	severity audit.Severity
	message  string
}

func (f *fakeAudit) Append(ctx context.Context, severity audit.Severity, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, fakeEntry{severity: severity, message: message})
	return nil
}

func (f *fakeAudit) all() []fakeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeEntry(nil), f.entries...)
}

// fakeRecognizer returns canned segments.
type fakeRecognizer struct {
	mu       sync.Mutex
	segments []speech.Segment
	err      error
	calls    int
	lastURI  string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, uri string) ([]speech.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURI = uri
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

// fakeProber reports a fixed probe outcome.
type fakeProber struct {
	err   error
	calls int
}

func (f *fakeProber) Check(ctx context.Context, path string) error {
	f.calls++
	return f.err
}

// fakePublisher collects published messages.
type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, key, value []byte, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, append([]byte(nil), value...))
	return nil
}

func (f *fakePublisher) all() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.messages...)
}
