package sig

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"ferrite/internal/safety"
)

// Store maps function names to their declared signatures.
type Store struct {
	sigs map[string]*Signature
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sigs: make(map[string]*Signature)}
}

// Get returns the signature for a function name, or nil.
func (s *Store) Get(name string) *Signature {
	if s == nil {
		return nil
	}
	return s.sigs[name]
}

// Put registers a signature, replacing any previous entry.
func (s *Store) Put(name string, sig *Signature) {
	s.sigs[name] = sig
}

// Len reports the number of registered signatures.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sigs)
}

// Names returns all registered function names, sorted.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.sigs))
	for name := range s.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type sigFile struct {
	Signatures map[string]string `toml:"signatures"`
	Safety     map[string]string `toml:"safety"`
}

// Load reads a signatures TOML file:
//
//	[signatures]
//	get_ref = "(&'a) -> &'a"
//
//	[safety]
//	trusted_helper = "unsafe"
//
// Safety entries attach per-function modes to signatures; a safety entry for
// a function without a [signatures] line creates a signature with no
// annotations.
func Load(path string) (*Store, error) {
	var cfg sigFile
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	store := NewStore()
	for name, text := range cfg.Signatures {
		parsed, err := ParseSignature(text)
		if err != nil {
			return nil, fmt.Errorf("%s: function %q: %w", path, name, err)
		}
		store.Put(name, parsed)
	}
	for name, mode := range cfg.Safety {
		entry := store.Get(name)
		if entry == nil {
			entry = &Signature{}
			store.Put(name, entry)
		}
		switch mode {
		case "safe":
			entry.Safety = safety.ModeSafe
		case "unsafe":
			entry.Safety = safety.ModeUnsafe
		case "default":
			entry.Safety = safety.ModeDefault
		default:
			return nil, fmt.Errorf("%s: function %q: bad safety mode %q", path, name, mode)
		}
	}
	return store, nil
}
