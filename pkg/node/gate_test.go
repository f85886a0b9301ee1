package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/chaind/pkg/chain/chaintest"
)

func TestReadersShareAccess(t *testing.T) {
	c, _ := newTestContext(t, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- c.View(context.Background(), func(r *Reader) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Height(ctx)
	assert.NoError(t, err)

	close(release)
	assert.NoError(t, <-done)
}

func TestWriterExcludesReaders(t *testing.T) {
	c, _ := newTestContext(t, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- c.Update(context.Background(), func(w *Writer) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ran := false
	err := c.View(ctx, func(r *Reader) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	close(release)
	assert.NoError(t, <-done)

	_, err = c.Height(context.Background())
	assert.NoError(t, err)
}

func TestQueuedWriterBlocksNewReaders(t *testing.T) {
	c, _ := newTestContext(t, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	readerDone := make(chan error)
	writerDone := make(chan error)

	go func() {
		readerDone <- c.View(context.Background(), func(r *Reader) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	go func() {
		writerDone <- c.Update(context.Background(), func(w *Writer) error { return nil })
	}()

	// let the writer queue behind the first reader
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Height(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.NoError(t, <-readerDone)
	assert.NoError(t, <-writerDone)
}

func TestCancelledWriteHasNoEffect(t *testing.T) {
	c, l := newTestContext(t, 3)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- c.View(context.Background(), func(r *Reader) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	b := chaintest.Next(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.AppendBlock(ctx, b)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	h, err := c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h)

	cctx, ccancel := context.WithCancel(context.Background())
	ccancel()
	_, err = c.Rollback(cctx)
	assert.ErrorIs(t, err, context.Canceled)

	h, err = c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h)
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	ctx := context.Background()
	c, l := newTestContext(t, 20)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				resp, err := c.GetExplorerBlocks(ctx, &GetExplorerBlocksRequest{Since: 15, Count: 100})
				if !assert.NoError(t, err) {
					return
				}
				for j := 1; j < len(resp.Blocks); j++ {
					assert.Equal(t, resp.Blocks[j-1].Hash(), resp.Blocks[j].Header.ParentHash)
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		err := c.Update(ctx, func(w *Writer) error {
			if i%3 == 2 {
				_, err := w.Rollback(ctx)
				return err
			}
			return w.AppendBlock(ctx, chaintest.Next(t, l))
		})
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
}
