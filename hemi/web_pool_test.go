// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hemi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWorkerPoolDrain(t *testing.T) {
	pool := newWorkerPool(2, 16, zerolog.Nop())
	var done atomic.Int32
	for i := 0; i < 10; i++ {
		if err := pool.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := pool.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if done.Load() != 10 {
		t.Errorf("done=%d", done.Load())
	}
	if err := pool.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Error("submit after close")
	}
	if err := pool.Close(context.Background()); err != nil {
		t.Error("close twice")
	}
}

func TestWorkerPoolPanic(t *testing.T) {
	pool := newWorkerPool(1, 4, zerolog.Nop())
	defer pool.Close(context.Background())
	pool.Submit(func() { panic("boom") })
	ran := make(chan struct{})
	pool.Submit(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Error("worker died after a panic")
	}
}

func TestWorkerPoolCloseTimeout(t *testing.T) {
	pool := newWorkerPool(1, 1, zerolog.Nop())
	release := make(chan struct{})
	defer close(release)
	pool.Submit(func() { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pool.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err=%v", err)
	}
}

func TestWorkerPoolSaturated(t *testing.T) {
	pool := newWorkerPool(1, 1, zerolog.Nop())
	release := make(chan struct{})
	defer pool.Close(context.Background())
	defer close(release)
	started := make(chan struct{})
	if err := pool.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := pool.Submit(func() {}); err != nil { // queued
		t.Fatal(err)
	}
	err := pool.Submit(func() {})
	if !errors.Is(err, ErrPoolSaturated) || !errors.Is(err, ErrInternal) {
		t.Errorf("err=%v", err)
	}
}
