package assets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/milk9111/avatar-customizer/scene"
)

type countingOpener struct {
	src   Source
	opens atomic.Int32
}

func (c *countingOpener) Open(name string) (io.ReadCloser, int64, error) {
	c.opens.Add(1)
	return c.src.Open(name)
}

func nameParser(data []byte) (*scene.Node, error) {
	if string(data) == "corrupt" {
		return nil, errors.New("bad magic")
	}
	return scene.NewGroup(string(data)), nil
}

func waitResult(t *testing.T, l *Loader) Result {
	t.Helper()
	select {
	case res := <-l.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a load result")
		return Result{}
	}
}

func TestPartPath(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"bun", "assets/bun.glb"},
		{"cap", "assets/cap.glb"},
	}
	for _, c := range cases {
		t.Run(c.id, func(t *testing.T) {
			if got := PartPath(c.id); got != c.want {
				t.Fatalf("expected %q, got %q", c.want, got)
			}
			if got := IDFromPath(c.want); got != c.id {
				t.Fatalf("IDFromPath: expected %q, got %q", c.id, got)
			}
		})
	}
	if got := IDFromPath("assets/parts.yaml"); got != "" {
		t.Fatalf("non-part path should map to no id, got %q", got)
	}
}

func TestLoaderDeliversResults(t *testing.T) {
	fsys := fstest.MapFS{
		"bun.glb":     {Data: []byte("bun")},
		"corrupt.glb": {Data: []byte("corrupt")},
	}
	opener := &countingOpener{src: Source{Embedded: fsys}}
	l := NewLoader(context.Background(), opener, nameParser, NewCache(), 2)
	defer l.Close()

	t.Run("ok", func(t *testing.T) {
		l.Load("hair", 3, PartPath("bun"))
		res := waitResult(t, l)
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Slot != "hair" || res.Token != 3 || res.Root.Name != "bun" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("cached", func(t *testing.T) {
		before := opener.opens.Load()
		l.Load("hair", 4, PartPath("bun"))
		if res := waitResult(t, l); res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if opener.opens.Load() != before {
			t.Fatalf("second load of the same path should come from the cache")
		}
	})

	t.Run("invalidate", func(t *testing.T) {
		before := opener.opens.Load()
		l.Invalidate(PartPath("bun"))
		l.Load("hair", 5, PartPath("bun"))
		waitResult(t, l)
		if opener.opens.Load() != before+1 {
			t.Fatalf("invalidated path should be fetched again")
		}
	})

	t.Run("missing", func(t *testing.T) {
		l.Load("hat", 1, PartPath("nope"))
		res := waitResult(t, l)
		if !errors.Is(res.Err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", res.Err)
		}
		if res.Root != nil {
			t.Fatalf("failed load should carry no subtree")
		}
	})

	t.Run("parse_error", func(t *testing.T) {
		l.Load("hat", 2, PartPath("corrupt"))
		res := waitResult(t, l)
		if res.Err == nil {
			t.Fatalf("expected a parse error")
		}
	})

	deadline := time.Now().Add(time.Second)
	for l.InFlight() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := l.InFlight(); n != 0 {
		t.Fatalf("expected no loads in flight, got %d", n)
	}
}

func TestLoaderCloseIsIdempotent(t *testing.T) {
	l := NewLoader(context.Background(), Source{Embedded: fstest.MapFS{}}, nameParser, nil, 1)
	if err := l.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	l.Load("hair", 1, PartPath("bun"))
	if n := l.InFlight(); n != 0 {
		t.Fatalf("load after close should not be queued, got %d in flight", n)
	}
}

type blockingOpener struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingOpener) Open(name string) (io.ReadCloser, int64, error) {
	b.started <- struct{}{}
	<-b.release
	return nil, 0, ErrNotFound
}

func TestLoaderCancelledContextSettles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := &blockingOpener{started: make(chan struct{}, 1), release: make(chan struct{})}
	l := NewLoader(ctx, op, nameParser, nil, 1)
	defer func() {
		close(op.release)
		_ = l.Close()
	}()

	l.Load("hair", 1, PartPath("bun"))
	<-op.started
	l.Load("hat", 1, PartPath("cap"))
	l.Load("top", 1, PartPath("hoodie"))
	if n := l.InFlight(); n != 3 {
		t.Fatalf("expected 3 loads in flight, got %d", n)
	}

	cancel()
	if n := l.InFlight(); n != 0 {
		t.Fatalf("cancelled loader should report nothing in flight, got %d", n)
	}
	l.Load("glasses", 1, PartPath("round"))
	if n := l.InFlight(); n != 0 {
		t.Fatalf("load after cancel should not be queued, got %d in flight", n)
	}
}

func TestProgressReader(t *testing.T) {
	var reports []int
	pr := &progressReader{r: &chunkReader{data: make([]byte, 100), chunk: 10}, total: 100, report: func(p int) {
		reports = append(reports, p)
	}}
	if _, err := io.ReadAll(pr); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := []int{30, 60, 90, 100}
	if len(reports) != len(want) {
		t.Fatalf("expected reports %v, got %v", want, reports)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("expected reports %v, got %v", want, reports)
		}
	}
}

type chunkReader struct {
	data  []byte
	chunk int
}

func (c *chunkReader) Read(b []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.chunk
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(b) {
		n = len(b)
	}
	copy(b, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestSourcePrefersDisk(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(dir, "bun.glb", "disk"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	src := Source{Disk: dir, Embedded: fstest.MapFS{"bun.glb": {Data: []byte("embedded")}}}
	if got := readSource(t, src, PartPath("bun")); got != "disk" {
		t.Fatalf("expected disk copy, got %q", got)
	}

	src.Disk = ""
	if got := readSource(t, src, "bun.glb"); got != "embedded" {
		t.Fatalf("expected embedded copy, got %q", got)
	}
}

func readSource(t *testing.T, src Source, name string) string {
	t.Helper()
	rc, _, err := src.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(b)
}

func writeFile(dir, name, data string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(data), 0644)
}
