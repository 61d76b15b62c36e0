package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

// GetEnvFloat returns the float value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid number.
func GetEnvFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(GetEnv(key, ""), 64); err == nil {
		return f
	}
	return fallback
}

// Overlay holds the scheduling settings read from the environment.
type Overlay struct {
	MatchWindow     float64
	SeekPolicy      string
	CatchUpLookback float64
	Allocator       string
	LaneCount       int
	ContainerWidth  float64
	ContainerHeight float64
	EventBufferSize int
}

// Accepted values for Overlay.SeekPolicy and Overlay.Allocator.
var (
	seekPolicies = []string{"strand", "catch_up"}
	allocators   = []string{"random", "lanes"}
)

// LoadOverlay reads the overlay settings, applying defaults for anything unset.
// It fails if a setting names an unknown seek policy or allocator.
func LoadOverlay() (Overlay, error) {
	cfg := Overlay{
		MatchWindow:     GetEnvFloat("MATCH_WINDOW_SECONDS", 0.1),
		SeekPolicy:      strings.ToLower(GetEnv("SEEK_POLICY", "strand")),
		CatchUpLookback: GetEnvFloat("CATCH_UP_LOOKBACK_SECONDS", 5),
		Allocator:       strings.ToLower(GetEnv("ALLOCATOR", "random")),
		LaneCount:       GetEnvInt("LANE_COUNT", 12),
		ContainerWidth:  GetEnvFloat("CONTAINER_WIDTH", 800),
		ContainerHeight: GetEnvFloat("CONTAINER_HEIGHT", 450),
		EventBufferSize: GetEnvInt("EVENT_BUFFER_SIZE", 1024),
	}
	if err := cfg.Validate(); err != nil {
		return Overlay{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (o Overlay) Validate() error {
	var errs []error
	if !slices.Contains(seekPolicies, o.SeekPolicy) {
		errs = append(errs, fmt.Errorf("SEEK_POLICY %q: want one of %s", o.SeekPolicy, strings.Join(seekPolicies, ", ")))
	}
	if !slices.Contains(allocators, o.Allocator) {
		errs = append(errs, fmt.Errorf("ALLOCATOR %q: want one of %s", o.Allocator, strings.Join(allocators, ", ")))
	}
	return errors.Join(errs...)
}
