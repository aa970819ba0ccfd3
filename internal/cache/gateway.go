package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/your-org/ytmerge/internal/observability"
)

var (
	ErrStoreProbe = errors.New("object store probe failed")
	ErrUpload     = errors.New("object store upload failed")
	ErrSign       = errors.New("signing retrieval url failed")
)

// Presence is the outcome of a metadata-only probe. Infrastructure failures
// are reported as errors, never as Absent.
type Presence int

const (
	Absent Presence = iota
	Present
)

// ObjectStore is the remote store behind the gateway.
type ObjectStore interface {
	Head(ctx context.Context, key string) (Presence, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
}

// Result describes how GetOrCreate obtained the object.
type Result struct {
	URL string
	// Hit is true when the object existed before this call.
	Hit bool
	// Coalesced is true when this call waited on another caller's creation.
	Coalesced bool
}

// Gateway implements the check/populate/retrieve protocol and allows at most
// one in-flight creation per key within this process. Creations are bound to
// the base context given to NewGateway rather than to any request.
type Gateway struct {
	store ObjectStore
	fs    afero.Fs
	group singleflight.Group

	base context.Context
	wg   sync.WaitGroup
}

func NewGateway(base context.Context, store ObjectStore, fs afero.Fs) *Gateway {
	return &Gateway{base: base, store: store, fs: fs}
}

// Wait blocks until every GetOrCreate call that reached the creation step has
// finished. Cancel the base context first to stop running creations.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

// Exists probes the store without transferring the object body.
func (g *Gateway) Exists(ctx context.Context, key Key) (bool, error) {
	p, err := g.store.Head(ctx, key.String())
	if err != nil {
		observability.CacheLookups.WithLabelValues("error").Inc()
		return false, fmt.Errorf("%w: %s: %w", ErrStoreProbe, key, err)
	}
	if p == Present {
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return true, nil
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()
	return false, nil
}

// Populate uploads the file at localPath as the body of key. When the upload
// fails, a partially written object is removed on a best-effort basis.
func (g *Gateway) Populate(ctx context.Context, key Key, localPath string) error {
	f, err := g.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrUpload, localPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrUpload, localPath, err)
	}

	if err := g.store.Put(ctx, key.String(), f, st.Size(), OutputContentType); err != nil {
		if rmErr := g.store.Remove(context.WithoutCancel(ctx), key.String()); rmErr != nil {
			slog.Warn("remove partial object", "key", key, "error", rmErr)
		} else {
			slog.Info("removed partial object", "key", key)
		}
		return fmt.Errorf("%w: %s: %w", ErrUpload, key, err)
	}

	observability.UploadBytes.Add(float64(st.Size()))
	return nil
}

// SignedURL returns a time-limited read URL for key.
func (g *Gateway) SignedURL(ctx context.Context, key Key, ttl time.Duration) (string, error) {
	u, err := g.store.PresignGet(ctx, key.String(), ttl, key.Filename())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSign, key, err)
	}
	return u, nil
}

// GetOrCreate returns a signed URL for key, calling create to produce and
// upload the object when it is absent. Concurrent calls for the same key share
// one create call. create keeps the caller's context values but is cancelled
// only with the gateway's base context, so a departing caller does not fail
// the others; each caller may still stop waiting when its own ctx ends.
func (g *Gateway) GetOrCreate(ctx context.Context, key Key, ttl time.Duration, create func(ctx context.Context) error) (Result, error) {
	exists, err := g.Exists(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if exists {
		u, err := g.SignedURL(ctx, key, ttl)
		return Result{URL: u, Hit: true}, err
	}

	led := false
	ch := make(chan singleflight.Result, 1)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		v, err, shared := g.group.Do(key.String(), func() (any, error) {
			led = true
			return g.lead(ctx, key, create)
		})
		ch <- singleflight.Result{Val: v, Err: err, Shared: shared}
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		coalesced := !led
		if res.Err != nil {
			return Result{Coalesced: coalesced}, res.Err
		}
		u, err := g.SignedURL(ctx, key, ttl)
		hit, _ := res.Val.(bool)
		return Result{URL: u, Hit: hit, Coalesced: coalesced}, err
	}
}

// lead runs on behalf of every caller waiting on key. It reports true when the
// object turned up without creating it.
func (g *Gateway) lead(ctx context.Context, key Key, create func(ctx context.Context) error) (bool, error) {
	cctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancel(nil)
	stop := context.AfterFunc(g.base, func() { cancel(context.Cause(g.base)) })
	defer stop()

	// Another replica may have populated the key since the first lookup. This
	// check is not a client lookup and stays out of the lookup metrics.
	p, err := g.store.Head(cctx, key.String())
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrStoreProbe, key, err)
	}
	if p == Present {
		return true, nil
	}
	return false, create(cctx)
}
