package location

import (
	"context"
	"errors"
	"time"

	"github.com/shenikar/relief_locator/internal/geo"
)

var (
	ErrPermissionDenied    = errors.New("location: permission denied")
	ErrPositionUnavailable = errors.New("location: position unavailable")
)

// Fix - одно измерение положения.
type Fix struct {
	Coordinate geo.Coordinate
	Accuracy   float64 // meters, 0 if unknown
	Timestamp  time.Time
}

// Options передаются источнику при каждом запросе.
type Options struct {
	Timeout      time.Duration
	HighAccuracy bool
	// MaximumAge - допустимый возраст кэшированного измерения. Ноль требует свежего.
	MaximumAge time.Duration
}

const DefaultTimeout = 10 * time.Second

// DefaultFallback используется, когда положение определить не удалось (центр Мисура).
var DefaultFallback = geo.Coordinate{Latitude: 12.2958, Longitude: 76.6394}

func DefaultOptions() Options {
	return Options{
		Timeout:      DefaultTimeout,
		HighAccuracy: true,
	}
}

// Source - возможность устройства определять положение.
type Source interface {
	Available() bool
	CurrentPosition(ctx context.Context, opts Options) (Fix, error)
	// Watch шлёт измерения до отмены ctx, затем закрывает канал.
	Watch(ctx context.Context, opts Options) (<-chan Fix, error)
}

// StaticSource отдаёт фиксированное положение, например заданное в командной строке.
type StaticSource struct {
	Coordinate geo.Coordinate
	Now        func() time.Time
}

func (s StaticSource) Available() bool { return true }

func (s StaticSource) CurrentPosition(ctx context.Context, _ Options) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	return Fix{Coordinate: s.Coordinate, Timestamp: s.now()}, nil
}

// Watch ничего не шлёт: статичное положение не меняется.
func (s StaticSource) Watch(ctx context.Context, _ Options) (<-chan Fix, error) {
	ch := make(chan Fix)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (s StaticSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Unsupported - Source для окружений без определения положения.
type Unsupported struct{}

func (Unsupported) Available() bool { return false }

func (Unsupported) CurrentPosition(context.Context, Options) (Fix, error) {
	return Fix{}, ErrPositionUnavailable
}

func (Unsupported) Watch(context.Context, Options) (<-chan Fix, error) {
	return nil, ErrPositionUnavailable
}
