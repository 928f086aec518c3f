package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultFollowInterval is the polling cadence used when Follow receives a
// non-positive interval.
const DefaultFollowInterval = 250 * time.Millisecond

const maxLineBytes = 1024 * 1024

// Last returns up to n trailing lines of path together with the file size at
// the time of reading, which callers pass to Follow. n <= 0 returns every line.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	scanner := bufio.NewScanner(io.LimitReader(file, info.Size()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if n <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		return lines, info.Size(), nil
	}

	ring := make([]string, n)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		if count < n {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	if count == n {
		for i := range count {
			lines[i] = ring[(idx+i)%n]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, info.Size(), nil
}

// Follow polls path for lines appended after offset and hands each complete
// line to emit until ctx ends. A file that shrinks below offset is treated as
// rotated and read again from the start; a missing file is waited for.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if emit == nil {
		return errors.New("follow requires an emit callback")
	}
	if interval <= 0 {
		interval = DefaultFollowInterval
	}
	if offset < 0 {
		offset = 0
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readAppended(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readAppended emits complete lines after offset and returns the offset of the
// first byte not yet emitted. A trailing partial line stays unread.
func readAppended(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			emit(string(bytes.TrimRight(line, "\r\n")))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
	}
}
