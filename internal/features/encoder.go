package features

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// UnknownCode is the code given to a value not seen when the encoder was fit.
const UnknownCode = 0

// LabelEncoder maps category values to their index among the sorted
// distinct values seen at fit time.
type LabelEncoder struct {
	Classes []string `yaml:"classes"`

	once  sync.Once
	index map[string]int
}

// Normalize trims a category value and puts it in Unicode NFC form, so
// "São Paulo" typed with a combining tilde matches the stored class.
func Normalize(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// FitLabelEncoder fits an encoder on values.
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]bool, len(values))
	var classes []string
	for _, v := range values {
		v = Normalize(v)
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

func (e *LabelEncoder) lookup() map[string]int {
	e.once.Do(func() {
		e.index = make(map[string]int, len(e.Classes))
		for i, c := range e.Classes {
			e.index[c] = i
		}
	})
	return e.index
}

// Encode returns the code of v and whether v was seen at fit time.
// Unseen values get UnknownCode.
func (e *LabelEncoder) Encode(v string) (int, bool) {
	code, ok := e.lookup()[Normalize(v)]
	if !ok {
		return UnknownCode, false
	}
	return code, true
}

// Decode returns the class for code.
func (e *LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
