package hotfolder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Observation records what the stability check saw.
type Observation struct {
	Children int
	// MinAge is the age of the most recently modified item, the directory
	// itself included.
	MinAge time.Duration
	// Newest names the item that determined MinAge ("." for the directory).
	Newest string
}

// Settled reports whether the observation satisfies quietPeriod.
func (o Observation) Settled(quietPeriod time.Duration) bool {
	return o.Children > 0 && o.MinAge > quietPeriod
}

// Observe stats dir and each direct child, without recursion, and returns the
// minimum age relative to now. Negative ages from clock skew count as zero.
func Observe(dir string, now time.Time) (Observation, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Observation{}, fmt.Errorf("stat %s: %w", dir, err)
	}
	obs := Observation{MinAge: age(now, info.ModTime()), Newest: "."}

	children, err := os.ReadDir(dir)
	if err != nil {
		return Observation{}, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, child := range children {
		childInfo, err := os.Stat(filepath.Join(dir, child.Name()))
		if err != nil {
			// Vanished mid-scan: the producer is still moving files around.
			return Observation{Children: obs.Children + 1, MinAge: 0, Newest: child.Name()}, nil
		}
		obs.Children++
		if a := age(now, childInfo.ModTime()); a < obs.MinAge {
			obs.MinAge = a
			obs.Newest = child.Name()
		}
	}
	return obs, nil
}

// IsSettled reports whether dir has at least one child and nothing in it was
// modified within quietPeriod.
func IsSettled(dir string, now time.Time, quietPeriod time.Duration) (bool, error) {
	obs, err := Observe(dir, now)
	if err != nil {
		return false, err
	}
	return obs.Settled(quietPeriod), nil
}

func age(now, modTime time.Time) time.Duration {
	if d := now.Sub(modTime); d > 0 {
		return d
	}
	return 0
}
