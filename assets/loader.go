package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/milk9111/avatar-customizer/scene"
	"golang.org/x/sync/errgroup"
)

// Opener opens an asset and reports its size for progress reporting.
type Opener interface {
	Open(name string) (io.ReadCloser, int64, error)
}

// ParseFunc turns raw asset bytes into a scene subtree.
type ParseFunc func(data []byte) (*scene.Node, error)

// Request asks for one part asset on behalf of a slot.
type Request struct {
	Slot  string
	Token uint64
	Path  string
}

// Result is the outcome of a Request. Exactly one of Root and Err is set.
type Result struct {
	Request
	Root *scene.Node
	Err  error
}

// ErrLoaderClosed is logged for requests made after Close.
var ErrLoaderClosed = errors.New("assets: loader closed")

// Loader fetches and parses assets on a fixed pool of worker goroutines.
// Results are posted to a channel that the owner drains on its own goroutine,
// so the scene graph is never touched by the workers.
type Loader struct {
	opener Opener
	parse  ParseFunc
	cache  *Cache

	requests chan Request
	results  chan Result
	inflight atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewLoader starts workers goroutines. A nil cache disables caching.
func NewLoader(ctx context.Context, opener Opener, parse ParseFunc, cache *Cache, workers int) *Loader {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Loader{
		opener:   opener,
		parse:    parse,
		cache:    cache,
		requests: make(chan Request, 64),
		results:  make(chan Result, 64),
		ctx:      ctx,
		cancel:   cancel,
		group:    &errgroup.Group{},
	}
	for i := 0; i < workers; i++ {
		l.group.Go(l.worker)
	}
	return l
}

// Load queues a request. The result arrives on Results.
func (l *Loader) Load(slot string, token uint64, path string) {
	req := Request{Slot: slot, Token: token, Path: path}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		log.Printf("assets: load %s for %s: %v", path, slot, ErrLoaderClosed)
		return
	}
	if err := l.ctx.Err(); err != nil {
		log.Printf("assets: load %s for %s: %v", path, slot, err)
		return
	}

	l.inflight.Add(1)
	select {
	case l.requests <- req:
	case <-l.ctx.Done():
		l.inflight.Add(-1)
	}
}

// Results delivers finished loads.
func (l *Loader) Results() <-chan Result {
	return l.results
}

// InFlight reports requests queued or being processed whose result has not been posted yet.
// Once the loader's context is done no result will arrive, so it reports zero.
func (l *Loader) InFlight() int {
	if l.ctx.Err() != nil {
		return 0
	}
	return int(l.inflight.Load())
}

// Invalidate drops the cached bytes for path.
func (l *Loader) Invalidate(path string) {
	l.cache.Invalidate(path)
}

// Close cancels outstanding loads and waits for the workers to exit.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	return l.group.Wait()
}

func (l *Loader) worker() error {
	for {
		select {
		case <-l.ctx.Done():
			return nil
		case req := <-l.requests:
			res := Result{Request: req}
			res.Root, res.Err = l.load(req.Path)
			if res.Err != nil {
				log.Printf("assets: load %s for %s failed: %v", req.Path, req.Slot, res.Err)
			}
			select {
			case l.results <- res:
			case <-l.ctx.Done():
			}
			l.inflight.Add(-1)
		}
	}
}

func (l *Loader) load(path string) (*scene.Node, error) {
	data, ok := l.cache.Get(path)
	if !ok {
		var err error
		data, err = l.fetch(path)
		if err != nil {
			return nil, err
		}
		l.cache.Put(path, data)
	}

	root, err := l.parse(data)
	if err != nil {
		return nil, fmt.Errorf("assets: parse %s: %w", path, err)
	}
	return root, nil
}

func (l *Loader) fetch(path string) ([]byte, error) {
	rc, size, err := l.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pr := &progressReader{r: rc, total: size, report: func(pct int) {
		log.Printf("assets: %s %d%% loaded", path, pct)
	}}

	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, readerWithContext{ctx: l.ctx, r: pr}); err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// progressReader reports every 25% step of a read with a known size.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.report != nil {
		pct := int(p.read * 100 / p.total)
		if pct >= p.last+25 || (pct == 100 && p.last < 100) {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(b []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(b)
}
