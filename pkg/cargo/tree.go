package cargo

import (
	"bufio"
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// NameSet is a set of crate names.
type NameSet map[string]struct{}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// ParseTree reads `cargo tree -f {p} --prefix none` output: the first
// whitespace separated field of every non-empty line is a crate name.
// Output that is not valid UTF-8 fails with ErrCodeParse.
func ParseTree(data []byte) (NameSet, error) {
	if !utf8.Valid(data) {
		return nil, errors.New(errors.ErrCodeParse, "cargo tree output is not valid UTF-8")
	}

	names := make(NameSet)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		names[fields[0]] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read cargo tree output")
	}
	return names, nil
}
