package hotfolder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ClaimResult distinguishes a fresh claim from one made by an earlier cycle.
type ClaimResult int

const (
	Claimed ClaimResult = iota
	AlreadyClaimed
)

func (r ClaimResult) String() string {
	if r == AlreadyClaimed {
		return "already_claimed"
	}
	return "claimed"
}

// ClaimInfo is written into the marker to help operators trace a claim.
type ClaimInfo struct {
	Host    string
	PID     int
	CycleID string
	At      time.Time
}

// TryClaim creates the marker inside dir with an exclusive create, so at most
// one caller ever observes Claimed for a given folder.
func TryClaim(dir, marker string, info ClaimInfo) (ClaimResult, error) {
	path := filepath.Join(dir, marker)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return AlreadyClaimed, nil
		}
		return Claimed, fmt.Errorf("create claim marker %s: %w", path, err)
	}
	defer file.Close()

	if info.At.IsZero() {
		info.At = time.Now()
	}
	// The marker is authoritative once created; its content is informational.
	_, _ = fmt.Fprintf(file, "host=%s\npid=%d\ncycle=%s\nclaimed_at=%s\n",
		info.Host, info.PID, info.CycleID, info.At.UTC().Format(time.RFC3339))
	return Claimed, nil
}

// IsClaimed reports whether dir carries the marker.
func IsClaimed(dir, marker string) (bool, error) {
	_, err := os.Lstat(filepath.Join(dir, marker))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("check claim marker in %s: %w", dir, err)
	}
}

// ClaimedAt returns the marker modification time.
func ClaimedAt(dir, marker string) (time.Time, error) {
	info, err := os.Lstat(filepath.Join(dir, marker))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Release removes the marker so the next cycle reconsiders the folder. This is
// the operator's recovery path for quarantined batches.
func Release(dir, marker string) error {
	err := os.Remove(filepath.Join(dir, marker))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release claim on %s: %w", dir, err)
	}
	return nil
}
