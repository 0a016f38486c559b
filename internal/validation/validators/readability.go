package validators

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Readability scores prose with Flesch Reading Ease and flags long
// sentences, long paragraphs and heavy passive voice. Code is ignored.
//
// A paragraph only counts as long when it has more than MaxParagraphLength
// sentences and those sentences average more than shortSentenceWords words.
// A run of short plain sentences reads fine however many there are.
type Readability struct {
	cfg validation.ReadabilityConfig
}

// NewReadability returns a Readability validator.
func NewReadability(cfg validation.ReadabilityConfig) *Readability {
	return &Readability{cfg: cfg}
}

func (r *Readability) Name() string { return validation.NameReadability }

const shortSentenceWords = 10

type sentence struct {
	text  string
	words int
	line  int
}

func (r *Readability) Validate(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	md := Parse(doc.Content)
	var (
		sentences []sentence
		longParas []Paragraph
		words     int
		syllables int
	)
	for _, p := range md.Paragraphs {
		n, paraWords := 0, 0
		for _, s := range Sentences(PlainText(p.Text)) {
			ws := Words(s)
			if len(ws) == 0 {
				continue
			}
			sentences = append(sentences, sentence{text: s, words: len(ws), line: p.Line})
			n++
			paraWords += len(ws)
			words += len(ws)
			for _, w := range ws {
				syllables += Syllables(w)
			}
		}
		if r.cfg.MaxParagraphLength > 0 && n > r.cfg.MaxParagraphLength && paraWords > n*shortSentenceWords {
			longParas = append(longParas, p)
		}
	}
	if len(sentences) == 0 {
		return nil, ctx.Err()
	}

	var out []validation.Issue
	if r.cfg.CheckFlesch {
		score := FleschReadingEase(words, len(sentences), syllables)
		if score < r.cfg.FleschThreshold {
			out = append(out, readability(validation.SeverityWarning, "Flesch reading ease %.1f is below %.0f", score, r.cfg.FleschThreshold).
				With("score", math.Round(score*10)/10).
				Suggest("use shorter sentences and simpler words"))
		}
	}
	if r.cfg.CheckSentenceLength {
		var long []sentence
		for _, s := range sentences {
			if s.words > r.cfg.MaxSentenceLength {
				long = append(long, s)
			}
		}
		out = append(out, r.capped(len(long),
			func(i int) validation.Issue {
				return readability(validation.SeverityInfo, "sentence has %d words (max %d)", long[i].words, r.cfg.MaxSentenceLength).
					At(fmt.Sprintf("line %d", long[i].line)).
					WithContext(excerpt(long[i].text, 80))
			},
			fmt.Sprintf("%d sentences exceed %d words", len(long), r.cfg.MaxSentenceLength))...)
	}
	if r.cfg.CheckParagraphLength {
		out = append(out, r.capped(len(longParas),
			func(i int) validation.Issue {
				return readability(validation.SeverityInfo, "paragraph has more than %d sentences", r.cfg.MaxParagraphLength).
					At(fmt.Sprintf("line %d", longParas[i].Line)).
					WithContext(excerpt(longParas[i].Text, 80))
			},
			fmt.Sprintf("%d paragraphs exceed %d sentences", len(longParas), r.cfg.MaxParagraphLength))...)
	}
	if r.cfg.CheckPassiveVoice {
		passive := 0
		for _, s := range sentences {
			if IsPassive(s.text) {
				passive++
			}
		}
		pct := 100 * float64(passive) / float64(len(sentences))
		if pct > r.cfg.MaxPassivePercent {
			out = append(out, readability(validation.SeverityInfo, "%.0f%% of sentences use passive voice (max %.0f%%)", pct, r.cfg.MaxPassivePercent).
				With("passive_sentences", passive))
		}
	}
	return out, ctx.Err()
}

// capped returns one issue per offender, or a single rollup when there are
// more offenders than MaxIndividualIssues.
func (r *Readability) capped(n int, each func(int) validation.Issue, rollup string) []validation.Issue {
	if n == 0 {
		return nil
	}
	if n > r.cfg.MaxIndividualIssues {
		return []validation.Issue{readability(validation.SeverityInfo, "%s", rollup).With("count", n)}
	}
	out := make([]validation.Issue, 0, n)
	for i := range n {
		out = append(out, each(i))
	}
	return out
}

func readability(sev validation.Severity, format string, args ...any) validation.Issue {
	return validation.NewIssue(validation.IssueReadability, sev, fmt.Sprintf(format, args...))
}

// FleschReadingEase is 206.835 - 1.015*ASL - 84.6*ASW clamped to [0, 100].
func FleschReadingEase(words, sentences, syllables int) float64 {
	if words == 0 || sentences == 0 {
		return 0
	}
	asl := float64(words) / float64(sentences)
	asw := float64(syllables) / float64(words)
	score := 206.835 - 1.015*asl - 84.6*asw
	return math.Max(0, math.Min(100, score))
}

var vowelGroup = regexp.MustCompile(`[aeiouy]+`)

// Syllables counts vowel groups, dropping a silent trailing e. Every word has
// at least one syllable.
func Syllables(word string) int {
	w := strings.ToLower(strings.Trim(word, "'-"))
	if w == "" {
		return 0
	}
	if w[0] >= '0' && w[0] <= '9' {
		return 1
	}
	n := len(vowelGroup.FindAllString(w, -1))
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && n > 1 {
		n--
	}
	return max(n, 1)
}

var passivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:am|is|are|was|were|be|been|being)\s+(?:\w+ly\s+)?\w+(?:ed|en)\b`),
	regexp.MustCompile(`(?i)\b(?:am|is|are|was|were|be|been|being)\s+(?:\w+ly\s+)?(?:built|made|done|given|known|seen|shown|sent|set|put|kept|held|found|run|taken|written|chosen|thrown|told|paid|read|left|lost|brought|bought|caught|taught|thought)\b`),
	regexp.MustCompile(`(?i)\b(?:has|have|had)\s+been\s+\w+(?:ed|en)\b`),
	regexp.MustCompile(`(?i)\b(?:get|gets|got|gotten)\s+\w+ed\b`),
}

// IsPassive reports whether s matches an auxiliary plus participle pattern.
func IsPassive(s string) bool {
	for _, p := range passivePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
