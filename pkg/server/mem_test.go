//go:build test

package server

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"testing"

	"github.com/bastiangx/tabserve/pkg/dictionary"
)

var longPatterns = [][]string{
	{"a", "ab", "abc", "abcd", "abcde"},
	{"h", "he", "hel", "hell", "hello"},
	{"p", "pr", "pro", "prog", "progr", "progra", "program"},
	{"c", "co", "com", "comp", "compu", "comput", "computer"},
	{"i", "in", "int", "inte", "inter", "intern", "interna", "internat", "internati", "internatio", "internation", "internationa", "international"},
	{"d", "de", "dev", "deve", "devel", "develo", "develop", "developm", "developme", "developmen", "development"},
}

func memDictionary() *dictionary.List {
	list := dictionary.NewList()
	for i, pattern := range longPatterns {
		for j, word := range pattern {
			list.Add(word, uint(i*10+j+1))
			list.Add(fmt.Sprintf("%s%d", word, j), 1)
		}
	}
	return list
}

func memServer() *Server {
	return NewServer(nil, memDictionary(), nil, strings.NewReader(""), io.Discard)
}

func heapAlloc() int64 {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return int64(m.Alloc)
}

func TestMemorySessionChurn(t *testing.T) {
	for _, cycles := range []int{100, 500, 1000} {
		t.Run(fmt.Sprintf("cycles_%d", cycles), func(t *testing.T) {
			s := memServer()
			baseline := heapAlloc()
			baselineGoroutines := runtime.NumGoroutine()

			ops := 0
			for i := 0; i < cycles; i++ {
				resp := s.Handle(Request{Action: ActionNewSession})
				for _, prefix := range longPatterns[i%len(longPatterns)] {
					s.Handle(Request{Action: ActionComplete, Session: resp.Session, Text: prefix})
					s.Handle(Request{Action: ActionNext, Session: resp.Session})
					ops += 2
				}
				s.Handle(Request{Action: ActionCloseSession, Session: resp.Session})
			}

			memDelta := heapAlloc() - baseline
			goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
			memPerOp := float64(memDelta) / float64(ops)

			t.Logf("cycles=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				cycles, ops, memDelta, memPerOp, goroutineDelta)

			if memPerOp > 1000 {
				t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
			}
			if goroutineDelta > 2 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
			}
		})
	}
}

func TestMemoryConcurrentServers(t *testing.T) {
	memFile, err := os.Create("concurrent_memory.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer func() {
		memFile.Close()
		os.Remove("concurrent_memory.prof")
	}()

	const workers, iterations = 4, 250
	baseline := heapAlloc()
	baselineGoroutines := runtime.NumGoroutine()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := memServer()
			id := s.Handle(Request{Action: ActionNewSession}).Session
			for i := 0; i < iterations; i++ {
				for _, pattern := range longPatterns {
					for _, prefix := range pattern {
						s.Handle(Request{Action: ActionComplete, Session: id, Text: prefix})
					}
				}
				s.Handle(Request{Action: ActionAdd, Session: id, Text: fmt.Sprintf("extra%d", i)})
				s.Handle(Request{Action: ActionRemove, Session: id, Text: fmt.Sprintf("extra%d", i)})
			}
		}()
	}
	wg.Wait()

	memDelta := heapAlloc() - baseline
	goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
	t.Logf("workers=%d iterations=%d mem_delta=%d bytes goroutine_delta=%d", workers, iterations, memDelta, goroutineDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}
	if memDelta > 10*1024*1024 {
		t.Errorf("excessive retained memory: %d bytes", memDelta)
	}
	if goroutineDelta > 3 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}
