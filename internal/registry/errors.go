package registry

import (
	"fmt"

	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
)

// NotFoundError is returned by Retrieve when no descriptor was ever
// committed for a data source.
type NotFoundError struct {
	Name string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("data source %q not found at %s", e.Name, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return kvstore.ErrKeyNotFound
}

// ParseError is returned by Retrieve when the stored value is not a
// data source descriptor.
type ParseError struct {
	Name string
	Key  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse data source %q at %s: %v", e.Name, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
