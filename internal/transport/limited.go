package transport

import (
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// LimitedClient is an HTTP client that caps the number of simultaneous
// in-flight requests process-wide. Every remote call in the pipeline
// (downloads, blob uploads, post submissions) goes through one shared
// instance, so the cap is the primary backpressure mechanism: excess requests
// wait for a slot instead of being rejected.
type LimitedClient struct {
	client *http.Client
	slots  *semaphore.Weighted
}

// NewLimitedClient creates a client allowing at most maxConns concurrent
// requests, each bounded by timeout.
func NewLimitedClient(maxConns int, timeout time.Duration) *LimitedClient {
	return &LimitedClient{
		client: &http.Client{Timeout: timeout},
		slots:  semaphore.NewWeighted(int64(maxConns)),
	}
}

// Do executes req once a connection slot is free. The slot is held until the
// response body is fully consumed and closed by the caller; release happens
// via the returned response's Body wrapper.
func (c *LimitedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.slots.Release(1)
		return nil, err
	}

	resp.Body = &releasingBody{rc: resp.Body, release: func() { c.slots.Release(1) }}
	return resp, nil
}

type releasingBody struct {
	rc       io.ReadCloser
	release  func()
	released bool
}

func (b *releasingBody) Read(p []byte) (int, error) { return b.rc.Read(p) }

func (b *releasingBody) Close() error {
	err := b.rc.Close()
	if !b.released {
		b.released = true
		b.release()
	}
	return err
}
