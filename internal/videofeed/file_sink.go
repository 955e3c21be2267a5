package videofeed

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FileSink keeps the latest frame in a file. Each frame is written to a
// temporary file and renamed over the target so readers never see half a JPEG.
type FileSink struct {
	Path   string
	frames atomic.Int64
}

func (s *FileSink) Frame(_ string, jpeg []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".frame-*.jpg")
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	if _, err := tmp.Write(jpeg); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace frame file: %w", err)
	}
	s.frames.Add(1)
	return nil
}

// Frames returns how many frames have been written.
func (s *FileSink) Frames() int64 {
	return s.frames.Load()
}
