// Package application contains the application services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/input"
)

// ErrRateLimited is returned when the scan API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// Spool file naming: admin_<code>.geojson and facility_<code>_<epsg>.shp.
var (
	adminSpoolPattern    = regexp.MustCompile(`^admin_(\d{2})\.geojson$`)
	facilitySpoolPattern = regexp.MustCompile(`^facility_(\d{2})_(\d+)\.shp$`)
)

// ScanResult contains the result of a spool scan.
type ScanResult struct {
	Processed       int       `json:"processed"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	ScannedAt       time.Time `json:"scanned_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// SpoolService ingests source files dropped into a watched directory.
// Files are named for the dataset they replace; processed files are
// renamed aside so a scan never repeats work.
type SpoolService struct {
	runner   input.IngestRunner
	dir      string
	interval time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Rate limiting for API triggers
	lastAPIScan time.Time
	apiMutex    sync.Mutex

	// Prevents concurrent scans
	scanOpMutex sync.Mutex

	// Track next scheduled scan for reporting
	nextScan time.Time
	scanMu   sync.RWMutex
}

// NewSpoolService creates a new spool service.
func NewSpoolService(runner input.IngestRunner, dir string, interval time.Duration, logger *slog.Logger) *SpoolService {
	return &SpoolService{
		runner:   runner,
		dir:      dir,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Initialize to past time to allow immediate first API call
		lastAPIScan: time.Now().Add(-31 * time.Second),
	}
}

// Start begins the periodic scan scheduler.
func (s *SpoolService) Start(ctx context.Context) {
	s.logger.Info("starting spool service", "dir", s.dir, "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scan loop.
func (s *SpoolService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Set initial next scan time
	s.setNextScan(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("spool service stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("spool service stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled spool scan triggered")
			s.doScan(ctx)
			s.setNextScan(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the spool service.
func (s *SpoolService) Stop() {
	s.logger.Info("stopping spool service")
	close(s.stopCh)
	s.wg.Wait()
}

// TriggerScan manually triggers a scan with rate limiting. Returns
// ErrRateLimited if called more than twice per minute.
func (s *SpoolService) TriggerScan(ctx context.Context) (ScanResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	// Rate limit: 30 seconds cooldown (allows ~2 requests per minute)
	if time.Since(s.lastAPIScan) < 30*time.Second {
		return ScanResult{}, ErrRateLimited
	}
	s.lastAPIScan = time.Now()

	return s.Scan(ctx)
}

// doScan performs a scan without returning results.
func (s *SpoolService) doScan(ctx context.Context) {
	result, err := s.Scan(ctx)
	if err != nil {
		s.logger.Error("spool scan failed", "error", err)
		return
	}
	if result.Processed > 0 || result.Failed > 0 {
		s.logger.Info("spool scan completed",
			"processed", result.Processed,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}
}

// Scan processes every recognizable source file currently in the spool
// directory.
func (s *SpoolService) Scan(ctx context.Context) (ScanResult, error) {
	// Prevent concurrent scans
	s.scanOpMutex.Lock()
	defer s.scanOpMutex.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ScanResult{}, &domain.StorageError{Operation: "scan", Key: s.dir, Err: err}
	}

	result := ScanResult{ScannedAt: time.Now(), NextScheduledAt: s.getNextScan()}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		processed, err := s.Process(ctx, filepath.Join(s.dir, entry.Name()))
		switch {
		case err != nil:
			result.Failed++
		case processed:
			result.Processed++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

// Process ingests a single spool file if its name identifies a dataset.
// Unrecognized files are skipped without error so sidecars (.dbf, .shx,
// .prj) can sit next to their .shp.
func (s *SpoolService) Process(ctx context.Context, path string) (bool, error) {
	name := filepath.Base(path)

	if m := adminSpoolPattern.FindStringSubmatch(name); m != nil {
		err := s.ingestAdmin(ctx, path, m[1])
		s.finish(path, err)
		return err == nil, err
	}

	if m := facilitySpoolPattern.FindStringSubmatch(name); m != nil {
		epsg, convErr := strconv.Atoi(m[2])
		if convErr != nil {
			return false, convErr
		}
		err := s.ingestFacility(ctx, path, m[1], epsg)
		s.finish(path, err)
		return err == nil, err
	}

	return false, nil
}

func (s *SpoolService) ingestAdmin(ctx context.Context, path, code string) error {
	_, err := s.runner.IngestAdmin(ctx, input.AdminIngestRequest{
		Path: path,
		Key:  domain.DatasetKey(code),
	})
	return err
}

func (s *SpoolService) ingestFacility(ctx context.Context, path, code string, epsg int) error {
	_, err := s.runner.IngestFacilities(ctx, input.FacilityIngestRequest{
		Path:       path,
		Key:        domain.DatasetKey(code),
		SourceEPSG: epsg,
	})
	return err
}

// finish renames a processed file aside so the next scan ignores it.
func (s *SpoolService) finish(path string, err error) {
	suffix := ".done"
	if err != nil {
		suffix = ".failed"
		s.logger.Error("spool file failed", "file", path, "error", err)
	}
	if renameErr := os.Rename(path, path+suffix); renameErr != nil {
		s.logger.Error("could not move spool file aside", "file", path, "error", renameErr)
	}
}

// setNextScan updates the next scheduled scan time.
func (s *SpoolService) setNextScan(t time.Time) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	s.nextScan = t
}

// getNextScan returns the next scheduled scan time.
func (s *SpoolService) getNextScan() time.Time {
	s.scanMu.RLock()
	defer s.scanMu.RUnlock()
	return s.nextScan
}

// Interval returns the scan interval.
func (s *SpoolService) Interval() time.Duration {
	return s.interval
}
