// Package echotask registers a small demonstration task type, the Go
// analogue of the single-method sample class used throughout spec.md's
// worked examples (§8's "class C: def f(self,x):return x+1").
package echotask

import (
	"fmt"

	"github.com/geoffjay/plantd-job/internal/codec"
	"github.com/geoffjay/plantd-job/internal/registry"
)

const Descriptor = "org.plantd.job.Echo"

type echo struct{}

func (e *echo) Call(method string, args []byte) ([]byte, error) {
	switch method {
	case "Add":
		var call struct {
			Args []int64 `json:"args"`
		}
		if err := codec.Decode(args, &call); err != nil {
			return nil, err
		}
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("method Add takes exactly one argument, got %d", len(call.Args))
		}
		return codec.Encode(call.Args[0] + 1)
	default:
		return nil, registry.ErrNoSuchMethod
	}
}

func init() {
	registry.Register(Descriptor, func(_ []byte) (registry.Instance, error) {
		return &echo{}, nil
	})
}
