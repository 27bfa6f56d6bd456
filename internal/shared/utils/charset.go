package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Legacy encodings tried, in order, for names that are not valid UTF-8.
var fallbackCharsets = []string{"windows-1251", "cp1251", "iso-8859-1", "cp866"}

const (
	// Detection on very short names is noise; below this only the
	// fallback list is used.
	minDetectLength     = 16
	minDetectConfidence = 60
)

// RepairName returns name unchanged when it is valid UTF-8. Otherwise it
// decodes the bytes with the detected legacy charset or the first fallback
// that yields clean UTF-8. If nothing works the input is returned as is.
func RepairName(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	raw := []byte(name)
	for _, label := range candidateCharsets(raw) {
		if decoded, ok := decodeAs(raw, label); ok {
			return decoded
		}
	}
	return name
}

func candidateCharsets(raw []byte) []string {
	labels := make([]string, 0, len(fallbackCharsets)+1)
	if len(raw) >= minDetectLength {
		results, err := chardet.NewTextDetector().DetectAll(raw)
		if err == nil {
			for _, r := range results {
				if r.Confidence < minDetectConfidence {
					break
				}
				if strings.HasPrefix(strings.ToUpper(r.Charset), "UTF") {
					continue
				}
				labels = append(labels, r.Charset)
				break
			}
		}
	}
	return append(labels, fallbackCharsets...)
}

func decodeAs(raw []byte, label string) (string, bool) {
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	decoded := string(out)
	if strings.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	return decoded, true
}
