package engine

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cx-engine/internal/model"
)

// Lexicon holds the churn-risk phrase tables. Matching is case-insensitive
// substring containment on the raw input text, which keeps churn risk
// reproducible and testable independent of model variance.
type Lexicon struct {
	HighRisk   []string `yaml:"high_risk"`
	MediumRisk []string `yaml:"medium_risk"`
}

// DefaultLexicon returns the built-in phrase tables, covering English and
// Arabic feedback.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		HighRisk: []string{
			"cancel",
			"never again",
			"switching to",
			"last chance",
			"unacceptable",
			"إلغاء",
			"لن أعود",
			"سأنتقل إلى",
			"آخر فرصة",
			"غير مقبول",
		},
		MediumRisk: []string{
			"disappointed",
			"frustrated",
			"considering options",
			"not happy",
			"محبط",
			"خيبة أمل",
			"أفكر في بدائل",
			"غير راضي",
			"غير سعيد",
		},
	}
}

// LoadLexicon reads a phrase-table override from a YAML file. Empty sections
// fall back to the built-in table for that risk level.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read lexicon file")
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, eris.Wrap(err, "engine: parse lexicon file")
	}

	defaults := DefaultLexicon()
	if len(lex.HighRisk) == 0 {
		lex.HighRisk = defaults.HighRisk
	}
	if len(lex.MediumRisk) == 0 {
		lex.MediumRisk = defaults.MediumRisk
	}
	return &lex, nil
}

// ChurnRiskFor computes churn risk deterministically from the CSAT prediction
// and the phrase tables applied to the raw input text:
//   - csat <= 2 and any high-risk phrase present   → high
//   - csat <= 3 or any medium-risk phrase present  → medium
//   - otherwise                                    → low
func (l *Lexicon) ChurnRiskFor(csat int, text string) model.ChurnRisk {
	lower := strings.ToLower(text)

	if csat <= 2 && containsAny(lower, l.HighRisk) {
		return model.ChurnRiskHigh
	}
	if csat <= 3 || containsAny(lower, l.MediumRisk) {
		return model.ChurnRiskMedium
	}
	return model.ChurnRiskLow
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
