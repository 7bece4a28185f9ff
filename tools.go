//go:build tools
// +build tools

// Package tools pins the mockgen version used by the go:generate directives
// in contract/ and repositories/.
package geochat

import (
	_ "go.uber.org/mock/mockgen"
)
