package validation

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Validator names.
const (
	NameTechnical    = "technical"
	NameCompleteness = "completeness"
	NameConsistency  = "consistency"
	NameReadability  = "readability"
	NamePolicy       = "policy"
)

// ManagerConfig holds the pass/fail thresholds.
type ManagerConfig struct {
	ErrorThreshold   int           `mapstructure:"error_threshold" json:"error_threshold"`
	WarningThreshold int           `mapstructure:"warning_threshold" json:"warning_threshold"`
	CriticalFails    bool          `mapstructure:"critical_fails" json:"critical_fails"`
	ValidatorTimeout time.Duration `mapstructure:"validator_timeout" json:"validator_timeout"`
	// Enabled limits which registered validators run by default. Empty runs all.
	Enabled []string `mapstructure:"enabled" json:"enabled,omitempty"`
}

// Decide applies the thresholds to r.
func (c ManagerConfig) Decide(r Result) bool {
	if c.CriticalFails && r.HasCriticalIssues() {
		return false
	}
	return r.ErrorCount() <= c.ErrorThreshold && r.WarningCount() <= c.WarningThreshold
}

type TechnicalConfig struct {
	CheckCodeBlocks    bool `mapstructure:"check_code_blocks"`
	CheckLanguageTags  bool `mapstructure:"check_language_tags"`
	CheckSyntax        bool `mapstructure:"check_syntax"`
	CheckIndentation   bool `mapstructure:"check_indentation"`
	CheckImports       bool `mapstructure:"check_imports"`
	CheckAPIReferences bool `mapstructure:"check_api_references"`
	CheckCommands      bool `mapstructure:"check_commands"`
	CheckURLs          bool `mapstructure:"check_urls"`
	// IndentDominance is the share of indented lines that must agree on a
	// width before the block counts as consistent.
	IndentDominance float64 `mapstructure:"indent_dominance"`
}

type CompletenessConfig struct {
	CheckMandatorySections bool `mapstructure:"check_mandatory_sections"`
	CheckEmptySections     bool `mapstructure:"check_empty_sections"`
	CheckExamples          bool `mapstructure:"check_examples"`
	CheckRelationships     bool `mapstructure:"check_relationships"`
}

type ConsistencyConfig struct {
	CheckHeadingHierarchy bool `mapstructure:"check_heading_hierarchy"`
	CheckStyle            bool `mapstructure:"check_style"`
	CheckLinks            bool `mapstructure:"check_links"`
	CheckCrossReferences  bool `mapstructure:"check_cross_references"`
	CheckVersions         bool `mapstructure:"check_versions"`
	// MinStyleOccurrences is how many items a style group needs before mixed
	// styles are reported.
	MinStyleOccurrences int `mapstructure:"min_style_occurrences"`
	// RawURLMinority is the share below which raw URLs mixed with one other
	// link style are tolerated.
	RawURLMinority float64 `mapstructure:"raw_url_minority"`
}

type ReadabilityConfig struct {
	CheckFlesch          bool    `mapstructure:"check_flesch"`
	CheckSentenceLength  bool    `mapstructure:"check_sentence_length"`
	CheckParagraphLength bool    `mapstructure:"check_paragraph_length"`
	CheckPassiveVoice    bool    `mapstructure:"check_passive_voice"`
	FleschThreshold      float64 `mapstructure:"flesch_threshold"`
	MaxSentenceLength    int     `mapstructure:"max_sentence_length"`
	MaxParagraphLength   int     `mapstructure:"max_paragraph_length"`
	MaxPassivePercent    float64 `mapstructure:"max_passive_percent"`
	// MaxIndividualIssues caps per-offender issues; more offenders collapse
	// into one rollup issue.
	MaxIndividualIssues int `mapstructure:"max_individual_issues"`
}

type PolicyConfig struct {
	Dir     string `mapstructure:"dir"`
	Package string `mapstructure:"package"`
}

// ValidatorsConfig groups per-validator options.
type ValidatorsConfig struct {
	Technical    TechnicalConfig    `mapstructure:"technical"`
	Completeness CompletenessConfig `mapstructure:"completeness"`
	Consistency  ConsistencyConfig  `mapstructure:"consistency"`
	Readability  ReadabilityConfig  `mapstructure:"readability"`
	Policy       PolicyConfig       `mapstructure:"policy"`
}

// Config is the validation section of the application config.
type Config struct {
	Manager    ManagerConfig    `mapstructure:"manager"`
	Validators ValidatorsConfig `mapstructure:"validators"`
}

// DefaultConfig turns every check on with the documented thresholds.
func DefaultConfig() Config {
	return Config{
		Manager: ManagerConfig{
			ErrorThreshold:   0,
			WarningThreshold: 10,
			CriticalFails:    true,
			ValidatorTimeout: 30 * time.Second,
		},
		Validators: ValidatorsConfig{
			Technical: TechnicalConfig{
				CheckCodeBlocks:    true,
				CheckLanguageTags:  true,
				CheckSyntax:        true,
				CheckIndentation:   true,
				CheckImports:       true,
				CheckAPIReferences: true,
				CheckCommands:      true,
				CheckURLs:          true,
				IndentDominance:    0.8,
			},
			Completeness: CompletenessConfig{
				CheckMandatorySections: true,
				CheckEmptySections:     true,
				CheckExamples:          true,
				CheckRelationships:     true,
			},
			Consistency: ConsistencyConfig{
				CheckHeadingHierarchy: true,
				CheckStyle:            true,
				CheckLinks:            true,
				CheckCrossReferences:  true,
				CheckVersions:         true,
				MinStyleOccurrences:   3,
				RawURLMinority:        0.2,
			},
			Readability: ReadabilityConfig{
				CheckFlesch:          true,
				CheckSentenceLength:  true,
				CheckParagraphLength: true,
				CheckPassiveVoice:    true,
				FleschThreshold:      50,
				MaxSentenceLength:    40,
				MaxParagraphLength:   6,
				MaxPassivePercent:    20,
				MaxIndividualIssues:  3,
			},
			Policy: PolicyConfig{Package: "featuregraph.docs"},
		},
	}
}

// DecodeConfig overlays raw (a nested map such as viper's "validation"
// section) on the defaults. Unset keys keep their default.
func DecodeConfig(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if len(raw) == 0 {
		return cfg, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode validation config: %w", err)
	}
	if cfg.Manager.ErrorThreshold < 0 || cfg.Manager.WarningThreshold < 0 {
		return Config{}, fmt.Errorf("validation thresholds must not be negative")
	}
	return cfg, nil
}
