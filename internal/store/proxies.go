package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nao1215/claimbot/internal/proxy"
)

// ProxyFile is the static proxy store. It is the only source of the pool;
// the rejection sink is never read back.
type ProxyFile struct {
	path   string
	parser *proxy.Parser
}

// NewProxyFile creates a proxy store backed by path.
func NewProxyFile(path string, parser *proxy.Parser) *ProxyFile {
	if parser == nil {
		parser = proxy.NewParser()
	}
	return &ProxyFile{path: path, parser: parser}
}

// Path returns the file path of the store.
func (f *ProxyFile) Path() string {
	return f.path
}

// Load parses the store. A missing file yields an empty pool.
func (f *ProxyFile) Load() ([]*proxy.Spec, error) {
	lines, err := ReadLines(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load proxies: %w", err)
	}
	return f.parser.ParseAll(lines), nil
}
