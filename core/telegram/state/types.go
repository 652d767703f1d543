package state

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidDriver is returned by NewStore for an unknown driver name.
	ErrInvalidDriver = errors.New("state: invalid driver")
	// ErrInvalidConfig is returned when a driver is missing a required option.
	ErrInvalidConfig = errors.New("state: invalid configuration")
)

// Driver names accepted by NewStore.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Store keeps one value per conversation id. Writes are last-write-wins per id
// and operations on different ids never wait on each other's I/O.
type Store[T any] interface {
	// Get returns the stored value and whether one exists.
	Get(ctx context.Context, id int64) (T, bool, error)
	// Set replaces the value for id.
	Set(ctx context.Context, id int64, v T) error
	// Close releases driver resources.
	Close() error
}

// Codec converts session values to and from their persisted form.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes concrete types with encoding/json.
type JSONCodec[T any] struct{}

// Encode implements Codec.
func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

// Decode implements Codec.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
