package cli

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal. The prompt is only shown
// when stdin is a terminal so piped scripts produce clean output.
var isTerminal = term.IsTerminal

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func parseFloats(args []string, n int, usage string) ([]float64, error) {
	if len(args) != n {
		return nil, usageError(usage)
	}
	out := make([]float64, n)
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		out[i] = v
	}
	return out, nil
}

// contentTypeFor guesses the media type of a local file from its extension,
// falling back to content sniffing.
func contentTypeFor(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
		return ct
	}
	return http.DetectContentType(data)
}
