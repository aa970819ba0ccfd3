package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/your-org/ytmerge/internal/cache"
	"github.com/your-org/ytmerge/internal/media"
	"github.com/your-org/ytmerge/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Head(_ context.Context, key string) (cache.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return cache.Present, nil
	}
	return cache.Absent, nil
}

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	s.puts.Add(1)
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://store.example/" + key + "?X-Amz-Signature=abc", nil
}

func (s *fakeStore) put(key string) {
	s.mu.Lock()
	s.objects[key] = []byte("merged")
	s.mu.Unlock()
}

// fakeTranscoder writes dest and then returns err.
type fakeTranscoder struct {
	fs    afero.Fs
	err   error
	calls atomic.Int32
	dests []string
	mu    sync.Mutex
}

func (f *fakeTranscoder) Merge(_ context.Context, videoURL, audioURL, dest string) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.dests = append(f.dests, dest)
	f.mu.Unlock()
	if err := afero.WriteFile(f.fs, dest, []byte(videoURL+audioURL), 0o644); err != nil {
		return err
	}
	return f.err
}

type fakeSession struct {
	info   *models.BasicInfo
	failOn map[int]bool
}

func (s *fakeSession) BasicInfo(_ context.Context, id string) (*models.BasicInfo, error) {
	if s.info == nil {
		return nil, errors.New("video unavailable: " + id)
	}
	return s.info, nil
}

func (s *fakeSession) Decipher(_ context.Context, d models.StreamDescriptor) (string, error) {
	if s.failOn[d.Tag] {
		return "", errors.New("n-parameter transform failed")
	}
	return "https://cdn.example/videoplayback?itag=" + d.QualityLabel, nil
}

type fakeResolver struct {
	sess     *fakeSession
	err      error
	sessions atomic.Int32
}

func (r *fakeResolver) NewSession(context.Context) (media.Session, error) {
	r.sessions.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.sess, nil
}

type fakeFormatCache struct {
	mu      sync.Mutex
	entries map[string]*models.VideoFormats
	getErr  error
}

func (c *fakeFormatCache) Get(_ context.Context, id string) (*models.VideoFormats, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	vf, ok := c.entries[id]
	return vf, ok, nil
}

func (c *fakeFormatCache) Set(_ context.Context, vf *models.VideoFormats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[vf.ID] = vf
	return nil
}
