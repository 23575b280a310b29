package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// dailyFile writes to <base>.<date>.log and switches files on the first
// write of a new day.
type dailyFile struct {
	mu   sync.Mutex
	base string
	now  func() time.Time
	day  string
	f    *os.File
}

func openDailyFile(path string, now func() time.Time) (*dailyFile, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	d := &dailyFile{base: strings.TrimSuffix(path, ".log"), now: now}
	if err := d.rotate(now().Format(dayLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dailyFile) name(day string) string {
	return d.base + "." + day + ".log"
}

func (d *dailyFile) rotate(day string) error {
	f, err := os.OpenFile(d.name(day), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.f != nil {
		_ = d.f.Close()
	}
	d.f, d.day = f, day
	return nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return 0, os.ErrClosed
	}
	if day := d.now().Format(dayLayout); day != d.day {
		if err := d.rotate(day); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
