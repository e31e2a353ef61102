// Package parallel contains bounded parallel loops used by corpus preparation.
package parallel

import (
	"sync"
	"sync/atomic"
)

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1 // Default to 1 if limit is zero or negative
	}
	if length <= 0 {
		return // No iterations to perform
	}

	sem := make(chan struct{}, limit) // Semaphore with buffer size 'limit'
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{} // Acquire semaphore
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore after function exits

			body(i)
		}(i)
	}

	wg.Wait() // Wait for all goroutines to finish
}

// ForEachErr is ForEach for bodies that can fail. After the first failure no
// new iterations are started. The error of the lowest failed index is returned.
func ForEachErr(length, limit int, body func(i int) error) error {
	var (
		stop  atomic.Bool
		mu    sync.Mutex
		first = -1
		ferr  error
	)
	ForEach(length, limit, func(i int) {
		if stop.Load() {
			return
		}
		if err := body(i); err != nil {
			stop.Store(true)
			mu.Lock()
			if first == -1 || i < first {
				first, ferr = i, err
			}
			mu.Unlock()
		}
	})
	return ferr
}
