package codec

import "errors"

var (
	// ErrSerialize wraps an encode failure, mapped to the SERIALIZE_EXCEPTION
	// wire tag by the session driver.
	ErrSerialize = errors.New("failed to serialize value")
	// ErrDeserialize wraps a decode failure, mapped to the
	// DESERIALIZE_EXCEPTION wire tag by the session driver.
	ErrDeserialize = errors.New("failed to deserialize value")
)
