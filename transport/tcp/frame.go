package tcp

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
)

// MaxFrameSize bounds the length prefix of a single frame.
const MaxFrameSize = 16 << 20

const delimiter = '#'

// frameLength is the length a JSON socket peer announces for body: the number
// of UTF-16 code units of the decoded string, not its byte count.
func frameLength(body []byte) int {
	n := 0
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		body = body[size:]
		n += runeUnits(r)
	}
	return n
}

// EncodeFrame prefixes body with its UTF-16 length and the delimiter.
func EncodeFrame(body []byte) []byte {
	head := strconv.Itoa(frameLength(body))
	frame := make([]byte, 0, len(head)+1+len(body))
	frame = append(frame, head...)
	frame = append(frame, delimiter)
	return append(frame, body...)
}

// ReadFrame reads one length-prefixed frame from r. The prefix counts UTF-16
// code units, so the body is consumed rune by rune until that many units have
// been read.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	head, err := r.ReadString(delimiter)
	if err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(strings.TrimSpace(head[:len(head)-1]))
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: bad length prefix %q", errspkg.ErrMalformedFrame, head)
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d units", errspkg.ErrFrameTooLarge, size)
	}

	body := make([]byte, 0, size)
	for units := 0; units < size; {
		ru, _, err := r.ReadRune()
		if err != nil {
			return nil, err
		}
		units += runeUnits(ru)
		body = utf8.AppendRune(body, ru)
	}
	return body, nil
}

// runeUnits is the UTF-16 width of ru. Invalid bytes decode to U+FFFD, one
// unit, as they do on the peer.
func runeUnits(ru rune) int {
	if w := utf16.RuneLen(ru); w > 0 {
		return w
	}
	return 1
}
