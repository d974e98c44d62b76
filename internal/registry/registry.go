// Package registry stands in for the dynamic class loading the original
// job process performs (unpickling a class object shipped by the client
// and instantiating it). Go has no equivalent of shipping and eval'ing
// source at runtime, so task types register a constructor under a name at
// init() time; INIT_OBJECT resolves that name instead of a serialized
// class descriptor. This is the option the spec's design notes call out
// explicitly: "a pre-registered task name plus typed payload".
package registry

import "fmt"

// Instance is a constructed task object exposing named callable methods,
// the Go analogue of the user-supplied class instance.
type Instance interface {
	// Call invokes method with codec-encoded args and returns a
	// codec-encoded result. A method name Call does not recognize must
	// return ErrNoSuchMethod so the session driver can map it to the
	// ATTRIBUTE_EXCEPTION tag.
	Call(method string, args []byte) ([]byte, error)
}

// Constructor builds a task Instance from codec-encoded constructor
// arguments.
type Constructor func(args []byte) (Instance, error)

// ErrNoSuchMethod is returned by Instance.Call for an unrecognized method
// name.
var ErrNoSuchMethod = fmt.Errorf("no such method")

// ErrNotRegistered is returned by New for an unknown descriptor.
var ErrNotRegistered = fmt.Errorf("task type not registered")

var constructors = make(map[string]Constructor)

// searchPath is the Go analogue of the original job's sys.path
// manipulation: a list of scratch directories a constructor may consult
// when resolving a task's supporting files. Only ever touched by the
// session driver, which is single-threaded by construction (spec.md §5),
// so no synchronization is needed.
var searchPath []string

// PushSearchPath prepends dir to the search path and returns the previous
// path so the caller can restore it on session reset.
func PushSearchPath(dir string) []string {
	previous := searchPath
	searchPath = append([]string{dir}, searchPath...)
	return previous
}

// RestoreSearchPath replaces the search path, used when a session ends.
func RestoreSearchPath(previous []string) {
	searchPath = previous
}

// SearchPath returns the current search path, most-recently-pushed first.
func SearchPath() []string {
	return searchPath
}

// Register associates a task descriptor name with a constructor. Intended
// to be called from an init() function in a package that defines a task
// type, mirroring how module/echo registers its routes at package init.
func Register(descriptor string, ctor Constructor) {
	constructors[descriptor] = ctor
}

// New resolves descriptor to a registered constructor and invokes it with
// args.
func New(descriptor string, args []byte) (Instance, error) {
	ctor, ok := constructors[descriptor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, descriptor)
	}
	return ctor(args)
}
