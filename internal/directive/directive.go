// Package directive parses batch load/export directives of the form
// --<key>_in=<files>, --<key>_prefix_in=<prefix> and --<key>_num_in=<n>
// (and their _out counterparts) into the list of files to transfer.
package directive

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a malformed directive. It is raised before any
// work is scheduled.
type ConfigurationError struct {
	Directive string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %q: %s", e.Directive, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Direction selects the directive suffix family.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) suffix() string {
	if d == Out {
		return "_out"
	}
	return "_in"
}

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Target is one file to load or export.
type Target struct {
	// Key is the directive key without its suffix, e.g. "references".
	Key string
	// Resource is the workspace name the file is loaded into or exported from.
	Resource string
	Filename string
	// Data is set when the target belongs to the data family.
	Data bool
	// Sequence is set when the target came from a prefix and count pair.
	Sequence bool
}

// Sequence describes a numbered family of files: either an explicit list or
// Prefix followed by 0..Count-1.
type Sequence struct {
	Key      string
	Prefix   string
	Count    int
	Explicit []string

	hasPrefix bool
	hasCount  bool
	source    string
}

// Expand returns the filenames of the sequence in order. The explicit list,
// when present, wins over prefix and count.
func (s Sequence) Expand() ([]string, error) {
	if len(s.Explicit) > 0 {
		return append([]string(nil), s.Explicit...), nil
	}
	switch {
	case s.hasPrefix && !s.hasCount:
		return nil, &ConfigurationError{Directive: s.source, Reason: fmt.Sprintf("--%s_prefix requires a matching --%s_num", s.Key, s.Key)}
	case s.hasCount && !s.hasPrefix:
		return nil, &ConfigurationError{Directive: s.source, Reason: fmt.Sprintf("--%s_num requires a matching --%s_prefix", s.Key, s.Key)}
	}

	names := make([]string, s.Count)
	for i := range names {
		names[i] = s.Prefix + strconv.Itoa(i)
	}
	return names, nil
}

// IsData reports whether a key routes to the data family.
func IsData(key string) bool {
	return strings.Contains(key, "references") || strings.Contains(key, "queries")
}

// Split splits a list of filenames on ',' and ':'. Trailing separators are
// ignored.
func Split(value string) []string {
	value = strings.TrimRight(value, ",:")
	if value == "" {
		return nil
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ':'
	})
}

// Parse resolves every directive of direction d in args. Arguments that are
// not directives of that direction are ignored. Immediate directives come
// first, in argument order, followed by sequences ordered by key.
func Parse(d Direction, args []string) ([]Target, error) {
	suffix := d.suffix()
	prefixSuffix := "_prefix" + suffix
	numSuffix := "_num" + suffix

	var targets []Target
	seqs := make(map[string]*Sequence)
	explicit := make(map[string]bool)

	seq := func(key, source string) *Sequence {
		s, ok := seqs[key]
		if !ok {
			s = &Sequence{Key: key, source: source}
			seqs[key] = s
		}
		return s
	}

	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		flag, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !strings.HasSuffix(flag, suffix) {
			continue
		}
		if !hasValue {
			return nil, &ConfigurationError{Directive: arg, Reason: "missing '='"}
		}

		switch {
		case strings.HasSuffix(flag, prefixSuffix):
			key := strings.TrimSuffix(flag, prefixSuffix)
			s := seq(key, arg)
			s.Prefix = value
			s.hasPrefix = true

		case strings.HasSuffix(flag, numSuffix):
			key := strings.TrimSuffix(flag, numSuffix)
			n, err := strconv.ParseInt(value, 10, 32)
			if errors.Is(err, strconv.ErrRange) {
				return nil, &ConfigurationError{Directive: arg, Reason: fmt.Sprintf("count %q is out of range", value)}
			}
			if err != nil {
				return nil, &ConfigurationError{Directive: arg, Reason: fmt.Sprintf("%q is not an integer", value)}
			}
			if n < 0 {
				return nil, &ConfigurationError{Directive: arg, Reason: "count must not be negative"}
			}
			s := seq(key, arg)
			s.Count = int(n)
			s.hasCount = true

		default:
			key := strings.TrimSuffix(flag, suffix)
			files := Split(value)
			if len(files) == 0 {
				return nil, &ConfigurationError{Directive: arg, Reason: "no filename given"}
			}
			explicit[key] = true
			for _, f := range files {
				targets = append(targets, Target{
					Key:      key,
					Resource: f,
					Filename: f,
					Data:     IsData(key),
				})
			}
		}
	}

	keys := make([]string, 0, len(seqs))
	for key := range seqs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s := seqs[key]
		if explicit[key] {
			// The literal list was already resolved above.
			continue
		}
		files, err := s.Expand()
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			targets = append(targets, Target{
				Key:      key,
				Resource: f,
				Filename: f,
				Data:     true,
				Sequence: true,
			})
		}
	}

	return targets, nil
}

// Value returns the value of the first "name=value" or "--name=value"
// argument whose name matches exactly.
func Value(args []string, name string) (string, bool) {
	for _, arg := range args {
		flag, value, ok := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if ok && flag == name {
			return value, true
		}
	}
	return "", false
}
