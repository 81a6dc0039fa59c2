// Package record defines the on-disk text framing shared by the WAL and
// SSTs, and the tombstone sentinel used to encode deletions.
package record

import (
	"bufio"
	"fmt"
	"strings"
)

// Tombstone is the distinguished value that marks a key as deleted.
// It is an in-band sentinel: callers must not store this literal string
// as a real value.
const Tombstone = "---DELETED---"

const delimiter = " "

// Validate checks that key and value are legal for this store: non-empty,
// and free of the bytes used for framing (the key may not contain the
// delimiter or a newline; the value may contain spaces but not a newline).
func Validate(key, value string) error {
	if key == "" {
		return fmt.Errorf("record: empty key")
	}
	if value == "" {
		return fmt.Errorf("record: empty value")
	}
	if strings.ContainsRune(key, ' ') || strings.ContainsRune(key, '\n') {
		return fmt.Errorf("record: key %q contains a reserved byte", key)
	}
	if strings.ContainsRune(value, '\n') {
		return fmt.Errorf("record: value for key %q contains a newline", key)
	}
	return nil
}

// Encode renders a record as its on-disk line, without the trailing
// newline.
func Encode(key, value string) string {
	return key + delimiter + value
}

// Decode splits a record line at the first space, returning the key and
// the remainder as the value. The second return is false if the line has
// no delimiter at all, which marks it as malformed.
func Decode(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

// ReadLine reads one newline-terminated record line from r, dropping the
// trailing newline. It returns bufio.Reader's error unchanged (io.EOF when
// nothing more can be read); when the stream ends mid-line (a
// crash-truncated record) it returns the content it did read along with
// that error and partial=true, so callers can silently drop it per the
// replay/scan malformed-record policy.
func ReadLine(r *bufio.Reader) (line string, err error, partial bool) {
	s, err := r.ReadString('\n')
	if err != nil {
		// ReadString returns the bytes read so far along with the error.
		return strings.TrimSuffix(s, "\n"), err, s != ""
	}
	return strings.TrimSuffix(s, "\n"), nil, false
}
