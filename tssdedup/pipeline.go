package tssdedup

import (
	"bytes"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/umicount/cluster"
	"github.com/grailbio/umicount/encoding/bed12"
)

type job struct {
	idx int
	c   cluster.Cluster
}

// pipeline consolidates clusters on opts.Parallelism workers and writes the
// results in the order the clusters were pushed.
type pipeline struct {
	opts    *Opts
	jobs    chan job
	nextIdx int
	queue   *syncqueue.OrderedQueue
	err     errors.Once
	failed  chan struct{}
	failMu  sync.Once
	workers sync.WaitGroup
	writer  sync.WaitGroup
}

func newPipeline(opts *Opts, w *bed12.Writer, metrics *Metrics) *pipeline {
	p := &pipeline{
		opts:   opts,
		jobs:   make(chan job, opts.QueueLength),
		queue:  syncqueue.NewOrderedQueue(opts.QueueLength),
		failed: make(chan struct{}),
	}
	p.workers.Add(1)
	go func() {
		defer p.workers.Done()
		err := traverse.Each(opts.Parallelism, func(int) error {
			for j := range p.jobs {
				rec, err := Consolidate(j.c, opts.Mode)
				if err != nil {
					p.fail(errors.E(err, "consolidate cluster", j.c.Key.String()))
					continue
				}
				if err := p.queue.Insert(j.idx, rec); err != nil {
					p.fail(err)
				}
			}
			return nil
		})
		p.fail(err)
	}()
	p.writer.Add(1)
	go func() {
		defer p.writer.Done()
		p.fail(writeRecords(p.queue, w, metrics))
	}()
	return p
}

// writeRecords drains the queue into w until it is closed.
func writeRecords(queue *syncqueue.OrderedQueue, w *bed12.Writer, metrics *Metrics) error {
	var line bytes.Buffer
	lw := bed12.NewWriter(&line)
	for {
		v, ok, err := queue.Next()
		if err != nil || !ok {
			if err == nil {
				err = w.Flush()
			}
			return err
		}
		rec := v.(bed12.Record)
		line.Reset()
		if err := lw.Write(&rec); err != nil {
			return err
		}
		if err := lw.Flush(); err != nil {
			return err
		}
		metrics.addLine(line.Bytes())
		if err := w.Write(&rec); err != nil {
			return err
		}
	}
}

// fail records the first error and unblocks every stage.
func (p *pipeline) fail(err error) {
	if err == nil {
		return
	}
	p.err.Set(err)
	p.failMu.Do(func() {
		close(p.failed)
		p.queue.Close(err) // nolint: errcheck
	})
}

// push hands closed clusters to the workers, in order.
func (p *pipeline) push(clusters []cluster.Cluster) error {
	for _, c := range clusters {
		select {
		case p.jobs <- job{p.nextIdx, c}:
			p.nextIdx++
		case <-p.failed:
			return p.err.Err()
		}
	}
	return nil
}

// finish waits for all pushed clusters to be written.  err is an upstream
// error that aborts the pipeline.
func (p *pipeline) finish(err error) error {
	p.fail(err)
	close(p.jobs)
	p.workers.Wait()
	p.queue.Close(nil) // nolint: errcheck
	p.writer.Wait()
	return p.err.Err()
}
