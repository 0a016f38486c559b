package planner

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/util"
)

// userStoryWant captures Y in "As a X, I want (to) Y (so that Z)".
var userStoryWant = regexp.MustCompile(`(?i)\bI want (?:to )?(.+?)(?:,?\s+so that\b.*)?[.!]?$`)

// stageKeywords is checked in order; the first stage with a matching word wins.
var stageKeywords = []struct {
	stage task.Stage
	words []string
}{
	{task.StageTest, []string{"test", "tests", "testing", "verify", "qa", "coverage", "e2e"}},
	{task.StageDeploy, []string{"deploy", "deployment", "release", "rollout", "ship", "provision"}},
	{task.StageDocument, []string{"document", "documentation", "docs", "readme", "guide", "tutorial"}},
	{task.StageDesign, []string{"design", "architect", "architecture", "wireframe", "mockup", "schema", "prototype", "plan"}},
}

var complexWords = []string{"integrate", "integration", "migrate", "migration", "security", "encryption", "distributed",
	"concurrent", "real-time", "realtime", "scalable", "synchronization", "sync", "payment", "oauth"}

var hoursByComplexity = map[task.Complexity]float64{
	task.ComplexityLow:    2,
	task.ComplexityMedium: 4,
	task.ComplexityHigh:   8,
}

// DetectStage classifies text into a lifecycle stage by keyword, defaulting
// to implement.
func DetectStage(text string) task.Stage {
	words := tokenize(text)
	for _, sk := range stageKeywords {
		for _, w := range sk.words {
			if slices.Contains(words, w) {
				return sk.stage
			}
		}
	}
	return task.StageImplement
}

// EstimateComplexity rates text by length and by words that usually mean
// cross-cutting work.
func EstimateComplexity(text string) task.Complexity {
	words := tokenize(text)
	for _, w := range complexWords {
		if slices.Contains(words, w) {
			return task.ComplexityHigh
		}
	}
	switch {
	case len(words) > 20:
		return task.ComplexityHigh
	case len(words) <= 5:
		return task.ComplexityLow
	default:
		return task.ComplexityMedium
	}
}

// UserStoryGoal extracts the "I want" clause of a user story. Stories that do
// not follow the template are returned trimmed.
func UserStoryGoal(story string) string {
	story = strings.TrimSpace(story)
	if m := userStoryWant.FindStringSubmatch(story); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimRight(story, ".!")
}

// ExtractDrafts derives an ordered task batch from a feature's requirements
// and user stories. Drafts are grouped by stage, every draft depends on all
// drafts of the previous non-empty stage, and a verification task is appended
// when nothing lands in the test stage.
func ExtractDrafts(f connector.Feature) []connector.TaskDraft {
	var tasks []task.Task
	seen := make(map[string]bool)
	add := func(text, source string) {
		text = strings.TrimSpace(text)
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			return
		}
		seen[key] = true
		stage := DetectStage(text)
		complexity := EstimateComplexity(text)
		tasks = append(tasks, task.Task{
			Name:           taskName(stage, text),
			Description:    text,
			Priority:       f.Priority,
			Complexity:     complexity,
			EstimatedHours: hoursByComplexity[complexity],
			Stage:          stage,
			Source:         source,
		})
	}
	for _, r := range f.Requirements {
		add(r, task.SourceRequirement)
	}
	for _, s := range f.UserStories {
		add(UserStoryGoal(s), task.SourceUserStory)
	}

	if !slices.ContainsFunc(tasks, func(t task.Task) bool { return t.Stage == task.StageTest }) {
		tasks = append(tasks, task.Task{
			Name:           "Verify " + f.Name,
			Description:    fmt.Sprintf("Verify that %s meets all of its requirements and user stories.", f.Name),
			Priority:       f.Priority,
			Complexity:     task.ComplexityMedium,
			EstimatedHours: hoursByComplexity[task.ComplexityMedium],
			Stage:          task.StageTest,
			Source:         task.SourceVerification,
		})
	}

	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Stage.Rank() < tasks[j].Stage.Rank() })
	return chainStages(tasks)
}

// chainStages makes each task depend on every task of the nearest earlier
// stage that has tasks. tasks must already be sorted by stage.
func chainStages(tasks []task.Task) []connector.TaskDraft {
	drafts := make([]connector.TaskDraft, len(tasks))
	var prev, cur []int
	curStage := task.Stage("")
	for i, t := range tasks {
		if t.Stage != curStage {
			if len(cur) > 0 {
				prev = cur
			}
			cur = nil
			curStage = t.Stage
		}
		drafts[i] = connector.TaskDraft{Task: t, DependsOn: slices.Clone(prev)}
		cur = append(cur, i)
	}
	return drafts
}

func taskName(stage task.Stage, text string) string {
	text = util.Truncate(text, 160)
	first, _ := utf8.DecodeRuneInString(text)
	if stage == task.StageImplement && !startsWithVerb(text) {
		return "Implement " + lowerFirst(text)
	}
	if unicode.IsLower(first) {
		return string(unicode.ToUpper(first)) + text[utf8.RuneLen(first):]
	}
	return text
}

// startsWithVerb is a rough check for imperative phrasing such as
// "Add password reset".
func startsWithVerb(text string) bool {
	words := tokenize(text)
	if len(words) == 0 {
		return false
	}
	switch words[0] {
	case "add", "allow", "build", "configure", "create", "delete", "display", "enable", "expose", "export",
		"generate", "handle", "implement", "import", "integrate", "lock", "notify", "persist", "provide",
		"remove", "save", "send", "show", "store", "support", "track", "update", "validate", "write":
		return true
	}
	return false
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	// Keep acronyms such as "API" intact.
	if next, _ := utf8.DecodeRuneInString(s[n:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
