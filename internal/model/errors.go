package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidRequest marks a malformed feature request. It is always
	// raised locally, before any gateway call.
	ErrInvalidRequest = eris.New("invalid feature request")

	// ErrCityNotFound is returned when the requested city has no index in
	// the attribute store.
	ErrCityNotFound = eris.New("city not found")

	// ErrConfiguration marks missing credentials or certificate material.
	ErrConfiguration = eris.New("invalid configuration")
)

// Backing store names used in GatewayError.
const (
	StoreElasticsearch = "elasticsearch"
	StoreRedis         = "redis"
)

// GatewayError wraps any failure of a backing store together with the
// operation that triggered it.
type GatewayError struct {
	Store string
	Op    string
	Err   error
}

// NewGatewayError wraps err, or returns nil when err is nil.
func NewGatewayError(store, op string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Store: store, Op: op, Err: err}
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PartialWriteError reports a bulk write where some items were rejected.
// Every other item of the batch was still submitted. Err, when set, is the
// request-level failure that took whole batches down.
type PartialWriteError struct {
	Failed int
	Total  int
	Err    error
}

func (e *PartialWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d of %d items failed: %v", e.Failed, e.Total, e.Err)
	}
	return fmt.Sprintf("%d of %d items failed", e.Failed, e.Total)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
