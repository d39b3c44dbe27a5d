package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
)

func TestLocalPublishAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	if _, err := l.CurrentNumber(context.Background(), "data.txt"); !errors.Is(err, ErrNotPublished) {
		t.Errorf("Expected ErrNotPublished before first publish, got %v", err)
	}

	files := []File{
		{Name: "data.txt", Data: []byte("0175/2025        07.11.2025.\n")},
		{Name: "work_order_details.html", Data: []byte("<p>OK</p>")},
	}
	if err := l.Publish(context.Background(), files); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	line, err := l.CurrentNumber(context.Background(), "data.txt")
	if err != nil {
		t.Fatalf("CurrentNumber failed: %v", err)
	}
	if line != "0175/2025        07.11.2025.\n" {
		t.Errorf("Unexpected number line %q", line)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("Expected only the two published files, got %d entries", len(entries))
	}
}

func TestLocalPublishHonorsContext(t *testing.T) {
	l, _ := NewLocal(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Publish(ctx, []File{{Name: "data.txt"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// fakeSession records uploads into a shared remote map
type fakeSession struct {
	remote *fakeRemote
}

type fakeRemote struct {
	mu       sync.Mutex
	files    map[string][]byte
	dials    int
	failDial int // dial attempts that fail before one succeeds
	quits    int
}

func (s *fakeSession) Stor(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.remote.mu.Lock()
	s.remote.files[path] = data
	s.remote.mu.Unlock()
	return nil
}

func (s *fakeSession) ReadFile(path string) ([]byte, error) {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	data, ok := s.remote.files[path]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	return data, nil
}

func (s *fakeSession) Quit() error {
	s.remote.mu.Lock()
	s.remote.quits++
	s.remote.mu.Unlock()
	return nil
}

func newFakeFTP(remote *fakeRemote) *FTP {
	p := NewFTP(FTPConfig{Host: "ftp.example.com", RemoteDir: "board"})
	p.wait = time.Millisecond
	p.dial = func(ctx context.Context) (ftpSession, error) {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		remote.dials++
		if remote.dials <= remote.failDial {
			return nil, errors.New("connection refused")
		}
		return &fakeSession{remote: remote}, nil
	}
	return p
}

func TestFTPPublishRetries(t *testing.T) {
	remote := &fakeRemote{files: make(map[string][]byte), failDial: 2}
	p := newFakeFTP(remote)

	err := p.Publish(context.Background(), []File{
		{Name: "data.txt", Data: []byte("0175/2025")},
		{Name: "work_order_details.html", Data: []byte("<p>OK</p>")},
	})
	if err != nil {
		t.Fatalf("Publish should succeed on the third attempt: %v", err)
	}
	if remote.dials != 3 {
		t.Errorf("Expected 3 dials, got %d", remote.dials)
	}
	if !bytes.Equal(remote.files["data.txt"], []byte("0175/2025")) {
		t.Errorf("Unexpected remote data.txt %q", remote.files["data.txt"])
	}
	if remote.quits != 1 {
		t.Errorf("Expected the session to be closed once, got %d", remote.quits)
	}
}

func TestFTPPublishGivesUp(t *testing.T) {
	remote := &fakeRemote{files: make(map[string][]byte), failDial: 10}
	p := newFakeFTP(remote)

	err := p.Publish(context.Background(), []File{{Name: "data.txt"}})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Expected the last dial error, got %v", err)
	}
	if remote.dials != 3 {
		t.Errorf("Expected 3 attempts, got %d", remote.dials)
	}
}

func TestFTPCurrentNumber(t *testing.T) {
	remote := &fakeRemote{files: make(map[string][]byte)}
	p := newFakeFTP(remote)

	if _, err := p.CurrentNumber(context.Background(), "data.txt"); !errors.Is(err, ErrNotPublished) {
		t.Errorf("Expected ErrNotPublished, got %v", err)
	}
	if remote.dials != 1 {
		t.Errorf("A missing file should not be retried, got %d dials", remote.dials)
	}

	remote.files["data.txt"] = []byte("0174/2025        06.11.2025.\n")
	line, err := p.CurrentNumber(context.Background(), "data.txt")
	if err != nil {
		t.Fatalf("CurrentNumber failed: %v", err)
	}
	if !strings.HasPrefix(line, "0174/2025") {
		t.Errorf("Unexpected line %q", line)
	}
}

type stubPublisher struct {
	name    string
	err     error
	line    string
	lineErr error
	got     []File
}

func (s *stubPublisher) Name() string { return s.name }

func (s *stubPublisher) Publish(_ context.Context, files []File) error {
	s.got = files
	return s.err
}

func (s *stubPublisher) CurrentNumber(context.Context, string) (string, error) {
	return s.line, s.lineErr
}

func TestMultiPublishContinuesPastFailures(t *testing.T) {
	bad := &stubPublisher{name: "bad", err: errors.New("disk full")}
	good := &stubPublisher{name: "good"}
	m := Multi{bad, good}

	err := m.Publish(context.Background(), []File{{Name: "data.txt"}})
	if err == nil || !strings.Contains(err.Error(), "bad: disk full") {
		t.Errorf("Expected wrapped failure, got %v", err)
	}
	if len(good.got) != 1 {
		t.Error("Second target should still receive the files")
	}
	if m.Name() != "multi(bad,good)" {
		t.Errorf("Unexpected name %q", m.Name())
	}
}

func TestMultiCurrentNumber(t *testing.T) {
	m := Multi{
		&stubPublisher{name: "empty", lineErr: ErrNotPublished},
		&stubPublisher{name: "remote", line: "0175/2025"},
	}
	line, err := m.CurrentNumber(context.Background(), "data.txt")
	if err != nil || line != "0175/2025" {
		t.Errorf("Expected line from second target, got %q, %v", line, err)
	}

	none := Multi{&stubPublisher{name: "empty", lineErr: ErrNotPublished}}
	if _, err := none.CurrentNumber(context.Background(), "data.txt"); !errors.Is(err, ErrNotPublished) {
		t.Errorf("Expected ErrNotPublished, got %v", err)
	}
}
