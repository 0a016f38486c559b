package tags

import "strings"

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "by": true,
	"for": true, "from": true, "has": true, "he": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "will": true, "with": true, "us": true, "via": true, "vs": true,
}

// irregular plurals and words that only look plural
var lemmaExceptions = map[string]string{
	"analyses":   "analysis",
	"apis":       "api",
	"indices":    "index",
	"matrices":   "matrix",
	"children":   "child",
	"people":     "person",
	"data":       "data",
	"series":     "series",
	"species":    "species",
	"news":       "news",
	"status":     "status",
	"analysis":   "analysis",
	"access":     "access",
	"process":    "process",
	"address":    "address",
	"business":   "business",
	"kubernetes": "kubernetes",
	"postgres":   "postgres",
	"redis":      "redis",
	"jenkins":    "jenkins",
	"https":      "https",
	"aws":        "aws",
	"ios":        "ios",
	"macos":      "macos",
	"windows":    "windows",
	"sass":       "sass",
	"css":        "css",
}

// lemmatize reduces a plural English noun to its singular form with suffix
// rules. Every rule's output is a fixed point of lemmatize.
func lemmatize(word string) string {
	if stopWords[word] {
		return word
	}
	if lemma, ok := lemmaExceptions[word]; ok {
		return lemma
	}
	if len(word) <= 3 || !isAlpha(word) {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ches") && len(word) > 4:
		// branches -> branch, caches -> cache
		if isVowel(word[len(word)-5]) {
			return word[:len(word)-1]
		}
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
