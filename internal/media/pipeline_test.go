package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPipelineDeliversResults(t *testing.T) {
	t.Parallel()

	p := NewPipeline(2)
	defer p.Stop()

	res, err := p.submit(context.Background(), FormatWebP, func() result {
		return result{encode: &EncodeOutput{Blob: []byte("ok")}}
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.err != nil {
		t.Fatalf("job error: %v", res.err)
	}
	if string(res.encode.Blob) != "ok" {
		t.Errorf("unexpected blob: %q", res.encode.Blob)
	}
}

func TestPipelineConcurrentSubmissions(t *testing.T) {
	t.Parallel()

	p := NewPipeline(4)
	defer p.Stop()

	const jobs = 32
	var wg sync.WaitGroup
	errs := make(chan error, jobs)

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := p.submit(context.Background(), FormatWebP, func() result {
				return result{encode: &EncodeOutput{Width: n}}
			})
			if err != nil {
				errs <- err
				return
			}
			if res.encode.Width != n {
				errs <- errors.New("result delivered to wrong caller")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if n := p.PendingCount(); n != 0 {
		t.Errorf("pending count = %d after all jobs finished", n)
	}
}

func TestPipelineJobError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	defer p.Stop()

	wantErr := errors.New("bad image")
	res, err := p.submit(context.Background(), FormatAVIF, func() result {
		return result{err: wantErr}
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !errors.Is(res.err, wantErr) {
		t.Errorf("job error = %v, want %v", res.err, wantErr)
	}
}

func TestPipelineRecoversPanics(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	defer p.Stop()

	res, err := p.submit(context.Background(), FormatWebP, func() result {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.err == nil {
		t.Fatal("expected an error from a panicking job")
	}

	// The worker must still be alive after the panic.
	res, err = p.submit(context.Background(), FormatWebP, func() result {
		return result{encode: &EncodeOutput{}}
	})
	if err != nil || res.err != nil {
		t.Fatalf("pool unusable after panic: %v %v", err, res.err)
	}
}

func TestPipelineContextCancellation(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	defer p.Stop()

	block := make(chan struct{})

	// Occupy the single worker so the second submission waits.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.submit(context.Background(), FormatWebP, func() result {
			<-block
			return result{}
		})
	}()

	// Give the blocking job time to reach the worker.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.submit(ctx, FormatWebP, func() result {
		return result{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(block)
	wg.Wait()

	if n := p.PendingCount(); n != 0 {
		t.Errorf("abandoned job left %d pending entries", n)
	}
}

func TestPipelineJobTimeout(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	defer p.Stop()
	p.SetJobTimeout(20 * time.Millisecond)

	release := make(chan struct{})
	_, err := p.submit(context.Background(), FormatWebP, func() result {
		<-release
		return result{}
	})
	close(release)

	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestPipelineStopDuringSubmissions(t *testing.T) {
	t.Parallel()

	// Hammer Stop against a burst of concurrent submissions. Every submit
	// must either deliver its result or fail with ErrPipelineStopped; a send
	// racing the shutdown must never panic the process.
	for i := 0; i < 20; i++ {
		p := NewPipeline(2)

		const jobs = 16
		var wg sync.WaitGroup
		errs := make(chan error, jobs)

		for n := 0; n < jobs; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.submit(context.Background(), FormatWebP, func() result {
					return result{encode: &EncodeOutput{}}
				})
				if err != nil && !errors.Is(err, ErrPipelineStopped) {
					errs <- err
				}
			}()
		}

		p.Stop()
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Fatalf("submit during stop: %v", err)
		}
		if n := p.PendingCount(); n != 0 {
			t.Fatalf("stop left %d pending entries", n)
		}
	}
}

func TestPipelineStopRejectsNewWork(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	p.Stop()

	_, err := p.submit(context.Background(), FormatWebP, func() result {
		return result{}
	})
	if !errors.Is(err, ErrPipelineStopped) {
		t.Errorf("expected ErrPipelineStopped, got %v", err)
	}

	// Stop must be safe to call twice.
	p.Stop()
}
