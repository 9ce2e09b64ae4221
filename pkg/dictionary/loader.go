package dictionary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultWeight is given to lines without an explicit weight.
const DefaultWeight uint = 1

// ParseLine splits a "text:weight" line. The weight follows the last colon
// past the first byte; when it does not parse the whole line is the text.
func ParseLine(line string) (string, uint) {
	if idx := strings.LastIndexByte(line, ':'); idx > 0 {
		if w, err := strconv.ParseUint(line[idx+1:], 10, 0); err == nil {
			return line[:idx], uint(w)
		}
	}
	return line, DefaultWeight
}

// Load reads a word list. Blank lines and lines starting with '#' are
// skipped.
func Load(ctx context.Context, r io.Reader) (*List, error) {
	list := NewList()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsRune(line, 0) {
			log.Warnf("Skipping line %d: contains a NUL byte", lineNo)
			continue
		}
		list.Add(ParseLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list at line %d: %w", lineNo, err)
	}
	return list, nil
}

// LoadFile reads a word list from path.
func LoadFile(ctx context.Context, path string) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer file.Close()

	list, err := Load(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %d entries from %s", list.Len(), path)
	return list, nil
}

// LoadFiles reads several word lists concurrently and merges them in the
// order of paths. The first failure cancels the remaining reads.
func LoadFiles(ctx context.Context, paths []string) (*List, error) {
	lists := make([]*List, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			list, err := LoadFile(ctx, path)
			if err != nil {
				return err
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewList()
	for _, list := range lists {
		merged.Merge(list)
	}
	return merged, nil
}
