package weather

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/yegors/wxbridge/pkg/logger"
)

// MmapSinkConfig configures MmapSink.
type MmapSinkConfig struct {
	Path         string
	RegionBytes  int // per-scope mapped region size, must be >= 256
}

// DefaultMmapSinkConfig returns sane defaults.
func DefaultMmapSinkConfig() MmapSinkConfig {
	return MmapSinkConfig{
		Path:        "/dev/shm/wxbridge.metar",
		RegionBytes: 256,
	}
}

// MmapSink is a concrete InjectionSink that memory-maps a backing file and
// writes the 256-byte METAR buffer directly into the mapping, standing in
// for a simulator's shared-memory offset (e.g. an FSUIPC region on a real
// deployment). It serializes its own writes with a mutex because the
// engine may inject multiple scopes within a tick.
type MmapSink struct {
	cfg  MmapSinkConfig
	file *os.File
	data []byte
	mu   sync.Mutex

	scopeOffsets map[string]int
	nextOffset   int

	logger *logger.Logger
}

// NewMmapSink opens (creating if necessary) the backing file, sized for
// maxScopes regions, and maps it into memory.
func NewMmapSink(cfg MmapSinkConfig, maxScopes int, log *logger.Logger) (*MmapSink, error) {
	if cfg.RegionBytes < 256 {
		cfg.RegionBytes = 256
	}
	if maxScopes < 1 {
		maxScopes = 1
	}

	size := cfg.RegionBytes * maxScopes

	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening sink backing file: %w", err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("sizing sink backing file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap sink backing file: %w", err)
	}

	return &MmapSink{
		cfg:          cfg,
		file:         f,
		data:         data,
		scopeOffsets: make(map[string]int),
		logger:       log.Named("mmap-sink"),
	}, nil
}

// Inject writes metarBytes into the region reserved for scope, assigning a
// fresh region on first use of a scope.
func (s *MmapSink) Inject(scope string, metarBytes [256]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, ok := s.scopeOffsets[scope]
	if !ok {
		offset = s.nextOffset * s.cfg.RegionBytes
		if offset+s.cfg.RegionBytes > len(s.data) {
			return fmt.Errorf("mmap sink: no room for scope %q (region %d exceeds mapped size)", scope, s.nextOffset)
		}
		s.scopeOffsets[scope] = offset
		s.nextOffset++
	}

	copy(s.data[offset:offset+256], metarBytes[:])
	return nil
}

// Close unmaps and closes the backing file.
func (s *MmapSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := unix.Munmap(s.data); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
