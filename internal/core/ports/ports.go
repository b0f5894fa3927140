// Package ports declares the interfaces the app layer drives.
package ports

import (
	"nilscript/internal/data/symbolstore"
)

// SymbolStore persists builds, squeezed symbol tables and function maps.
type SymbolStore interface {
	RecordBuild(b symbolstore.Build, table map[string]string, lines []symbolstore.FunctionLine) (symbolstore.Build, error)
	LoadSqueezeMap(projectKey string) (map[string]string, error)
	Symbolicate(projectKey, text string) (string, error)
	LatestBuild(projectKey string) (symbolstore.Build, bool, error)
	FunctionLines(buildID, path string) ([]symbolstore.FunctionLine, error)
	Prune(projectKey string, keep int) (int64, error)
	Close() error
}

var _ SymbolStore = (*symbolstore.Store)(nil)
