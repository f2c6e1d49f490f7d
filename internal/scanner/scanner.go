// Package scanner inventories an ENIGMA data directory.
package scanner

// Scanner walks a data directory and classifies the files it finds.
type Scanner struct {
	root string
}

// New creates a new Scanner for the data directory root.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the scanned directory.
func (s *Scanner) Root() string {
	return s.root
}
