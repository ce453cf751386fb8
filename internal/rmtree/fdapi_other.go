//go:build !unix

package rmtree

import "errors"

// errUnsupported is returned unconditionally here: platforms without
// *at-family directory-fd syscalls always fall through to the tree or
// save-memory strategy.
var errUnsupported = errors.New("rmtree: fd-api strategy unsupported on this platform")

func removeFDAPI(path string, opts *Options) error {
	return errUnsupported
}
