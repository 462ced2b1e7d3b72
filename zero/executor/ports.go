package executor

import (
	"context"
	"time"
)

// Opener hands a URL or path to the desktop's default handler.
type Opener interface {
	Open(ctx context.Context, target string) error
}

// Launcher starts and stops applications by their configured name.
type Launcher interface {
	Launch(ctx context.Context, name string) error
	Close(ctx context.Context, name string) error
}

// RecycleBin empties the user's trash and reports how many items were removed.
type RecycleBin interface {
	Empty(ctx context.Context) (int, error)
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
