package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"scene-prompt-server/internal/config"
	"scene-prompt-server/internal/models"
)

// Категории нарушений
const (
	ViolationBlockedWord  = "blocked_word"
	ViolationStrictPolicy = "strict_policy"
	ViolationAdultContent = "adult_content"
	ViolationViolence     = "violence"
)

// MaskPlaceholder заменяет найденные запрещенные фрагменты.
const MaskPlaceholder = "***"

var (
	DefaultStrictLexicon = []string{
		"drug", "cocaine", "heroin", "narcotic", "overdose", "suicide", "self-harm",
		"hate", "racist", "terror", "extremis", "swastika", "cigarette",
	}
	DefaultAdultLexicon = []string{
		"nude", "naked", "nsfw", "sexual", "sexy", "erotic", "porn", "lingerie",
		"topless", "explicit", "seductive",
	}
	DefaultViolenceLexicon = []string{
		"violence", "violent", "kill", "murder", "blood", "gore", "gory", "weapon",
		"gun", "knife", "stabbing", "stabbed", "shoot", "corpse", "dead body", "torture", "massacre",
		"behead", "decapitat", "wound",
	}
)

// lexiconTerm - термин встроенного словаря. Совпадает с началом слова: "kill" находит "killing", но не "skill".
type lexiconTerm struct {
	term string
	re   *regexp.Regexp
}

type lexicon struct {
	category string
	terms    []lexiconTerm
}

func newLexicon(category string, terms, fallback []string) lexicon {
	if len(terms) == 0 {
		terms = fallback
	}
	l := lexicon{category: category}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		l.terms = append(l.terms, lexiconTerm{
			term: t,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\w*`),
		})
	}
	return l
}

// SafetyValidator проверяет промпт политикой безопасности. Не имеет состояния, кроме словарей.
type SafetyValidator struct {
	strict   lexicon
	adult    lexicon
	violence lexicon
}

// NewSafetyValidator создает валидатор. Пустые словари заменяются встроенными.
func NewSafetyValidator(lex config.Lexicons) *SafetyValidator {
	return &SafetyValidator{
		strict:   newLexicon(ViolationStrictPolicy, lex.Strict, DefaultStrictLexicon),
		adult:    newLexicon(ViolationAdultContent, lex.Adult, DefaultAdultLexicon),
		violence: newLexicon(ViolationViolence, lex.Violence, DefaultViolenceLexicon),
	}
}

type span struct{ start, end int }

type termHit struct {
	term  string
	first int
	spans []span
}

// Validate проверяет prompt. Результат детерминирован: повторный вызов с теми же аргументами
// дает побайтно одинаковый результат.
func (v *SafetyValidator) Validate(prompt string, cfg models.SafetyConfig) models.SafetyEvaluation {
	blocked := compileBlockedWords(cfg.BlockedTerms())

	var hits [][]termHit
	var categories []string

	collect := func(category string, terms []lexiconTerm) {
		var found []termHit
		for _, t := range terms {
			locs := t.re.FindAllStringIndex(prompt, -1)
			if len(locs) == 0 {
				continue
			}
			hit := termHit{term: t.term, first: locs[0][0]}
			for _, l := range locs {
				hit.spans = append(hit.spans, span{l[0], l[1]})
			}
			found = append(found, hit)
		}
		if len(found) == 0 {
			return
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].first < found[j].first })
		hits = append(hits, found)
		categories = append(categories, category)
	}

	collect(ViolationBlockedWord, blocked)
	if cfg.ContentPolicy == models.ContentPolicyStrict {
		collect(v.strict.category, v.strict.terms)
	}
	if cfg.AdultContent != models.AdultContentAllow {
		collect(v.adult.category, v.adult.terms)
	}
	if cfg.ViolenceFilter {
		collect(v.violence.category, v.violence.terms)
	}

	eval := models.SafetyEvaluation{Violations: []string{}}
	if len(hits) == 0 {
		return eval
	}

	var spans []span
	seen := make(map[string]struct{})
	for i, group := range hits {
		for _, h := range group {
			spans = append(spans, h.spans...)
			key := categories[i] + ":" + h.term
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			eval.Violations = append(eval.Violations, key)
		}
	}

	filtered := scrubResidual(maskSpans(prompt, spans), blocked)
	eval.FilteredPrompt = &filtered
	return eval
}

// compileBlockedWords строит регулярки для запрещенных слов: поиск подстроки без учета регистра.
// Шаблон строится из исходного написания: ToLower меняет число рун для части символов (İ).
func compileBlockedWords(words []models.BlockedTerm) []lexiconTerm {
	out := make([]lexiconTerm, 0, len(words))
	for _, w := range words {
		out = append(out, lexiconTerm{term: w.Key, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w.Word))})
	}
	return out
}

// maskSpans заменяет объединенные интервалы на MaskPlaceholder.
func maskSpans(s string, spans []span) string {
	if len(spans) == 0 {
		return s
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start == spans[j].start {
			return spans[i].end > spans[j].end
		}
		return spans[i].start < spans[j].start
	})

	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	cur := spans[0]
	flush := func(sp span) {
		b.WriteString(s[pos:sp.start])
		b.WriteString(MaskPlaceholder)
		pos = sp.end
	}
	for _, sp := range spans[1:] {
		if sp.start <= cur.end {
			if sp.end > cur.end {
				cur.end = sp.end
			}
			continue
		}
		flush(cur)
		cur = sp
	}
	flush(cur)
	b.WriteString(s[pos:])
	return b.String()
}

// scrubResidual удаляет запрещенные слова, которые могли образоваться на стыках после маскирования.
// Каждое удаление укорачивает строку, поэтому цикл конечен.
func scrubResidual(s string, blocked []lexiconTerm) string {
	for {
		changed := false
		for _, b := range blocked {
			if b.re.MatchString(s) {
				s = b.re.ReplaceAllLiteralString(s, "")
				changed = true
			}
		}
		if !changed {
			return s
		}
	}
}
