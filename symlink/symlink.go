// Package symlink implements component L: the inline target codec for
// plain and conditional symlinks, and the uid-dependent resolver that
// decodes one back into the string a caller actually wants. There is
// no inode/disk access here — this package is pure encode/decode over
// byte slices, grounded the way direntry's codec is: one Encode, one
// Resolve, no hidden state.
package symlink

import (
	"strings"

	"github.com/ospfs/ospfs/common"
	"github.com/ospfs/ospfs/ospfserr"
)

// Encode produces the inline target bytes stored in a symlink inode's
// body for the user-supplied target string, detecting the conditional
// form (`<prefix>?<root_path>:<other_path>`, where the first `?`
// precedes the first `:`). The `<prefix>` is discarded.
func Encode(target string) ([]byte, error) {
	if q := strings.IndexByte(target, '?'); q >= 0 {
		if c := strings.IndexByte(target, ':'); c > q {
			rootPath := target[q+1 : c]
			otherPath := target[c+1:]
			// "?" rootPath '\0' ":" otherPath '\0'
			encoded := make([]byte, 0, 1+len(rootPath)+1+1+len(otherPath)+1)
			encoded = append(encoded, '?')
			encoded = append(encoded, rootPath...)
			encoded = append(encoded, 0)
			encoded = append(encoded, ':')
			encoded = append(encoded, otherPath...)
			encoded = append(encoded, 0)
			if uint64(len(encoded)) > common.MAXNAMELEN {
				return nil, ospfserr.ErrNameTooLong
			}
			return encoded, nil
		}
	}

	if uint64(len(target)) > common.MAXSYMLINKLEN {
		return nil, ospfserr.ErrNameTooLong
	}
	encoded := make([]byte, 0, len(target)+1)
	encoded = append(encoded, target...)
	encoded = append(encoded, 0)
	return encoded, nil
}

// Resolve decodes the stored target bytes for the calling uid.
func Resolve(stored []byte, uid uint32) (string, error) {
	if len(stored) == 0 || stored[0] != '?' {
		return plainUpToNUL(stored), nil
	}

	if uid == 0 {
		return plainUpToNUL(stored[1:]), nil
	}

	innerNUL := indexByte(stored[1:], 0)
	if innerNUL < 0 {
		return "", ospfserr.ErrIO
	}
	rest := stored[1+innerNUL+1:]
	if len(rest) == 0 || rest[0] != ':' {
		return "", ospfserr.ErrIO
	}
	return plainUpToNUL(rest[1:]), nil
}

func plainUpToNUL(b []byte) string {
	n := indexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
