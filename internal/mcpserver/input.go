package mcpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apiwarden/apiwarden/contract"
)

// contractInput represents the two ways a contract can be provided to a
// tool. Exactly one of File or Content must be set.
type contractInput struct {
	File    string `json:"file,omitempty"    jsonschema:"Path to a contract file on disk (YAML or JSON)"`
	Content string `json:"content,omitempty" jsonschema:"Inline contract content (YAML or JSON)"`
}

// resolve loads the contract, consulting the session cache for file
// inputs.
func (in contractInput) resolve() (*contract.Document, error) {
	switch {
	case in.File != "" && in.Content != "":
		return nil, fmt.Errorf("provide file or content, not both")
	case in.File != "":
		return contractCache.loadFile(in.File)
	case in.Content != "":
		return contractCache.loadContent([]byte(in.Content))
	default:
		return nil, fmt.Errorf("contract requires file or content")
	}
}

// documentCache caches parsed contract documents per session. File
// entries are keyed by absolute path plus modification time, so an
// edited file is re-parsed automatically. Content entries are keyed by
// a SHA-256 hash.
type documentCache struct {
	mu      sync.Mutex
	entries map[string]*contract.Document
	maxSize int
}

var contractCache = &documentCache{
	entries: make(map[string]*contract.Document),
	maxSize: 16,
}

func (c *documentCache) loadFile(path string) (*contract.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("contract file: %w", err)
	}
	key := fmt.Sprintf("file:%s:%d", abs, info.ModTime().UnixNano())

	if doc := c.get(key); doc != nil {
		return doc, nil
	}
	doc, err := contract.LoadFile(abs)
	if err != nil {
		return nil, err
	}
	c.put(key, doc)
	return doc, nil
}

func (c *documentCache) loadContent(data []byte) (*contract.Document, error) {
	sum := sha256.Sum256(data)
	key := "content:" + hex.EncodeToString(sum[:])

	if doc := c.get(key); doc != nil {
		return doc, nil
	}
	doc, err := contract.Parse(data)
	if err != nil {
		return nil, err
	}
	c.put(key, doc)
	return doc, nil
}

func (c *documentCache) get(key string) *contract.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// put stores a document, dropping the whole cache when it hits capacity.
// Sessions touch a handful of contracts; simple eviction is enough.
func (c *documentCache) put(key string, doc *contract.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string]*contract.Document)
	}
	c.entries[key] = doc
}
