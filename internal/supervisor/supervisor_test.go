package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vedran77/agora/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeServer struct {
	stop     chan struct{}
	shutdown atomic.Bool
}

func (f *fakeServer) ListenAndServe() error {
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

type countingRunner struct {
	runs  atomic.Int32
	crash bool
}

func (r *countingRunner) Run(ctx context.Context) error {
	if r.runs.Add(1) == 1 && r.crash {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestTreeStartsAndStopsServices(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), time.Second)
	server := &fakeServer{stop: make(chan struct{})}
	runner := &countingRunner{}
	tree.AddAPI(NewHTTPService(server, time.Second))
	tree.AddWorker(NewRunnerService("fanout", runner))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-errCh
	assert.True(t, server.shutdown.Load())
}

func TestRunnerServiceRestartsAfterFailure(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), time.Second)
	runner := &countingRunner{crash: true}
	tree.AddWorker(NewRunnerService("hub", runner))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool { return runner.runs.Load() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	<-errCh
}
