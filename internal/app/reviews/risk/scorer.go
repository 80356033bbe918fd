package risk

import (
	"regexp"
	"strings"
	"unicode"
)

// Assessment - структурированная оценка риска текста отзыва.
// Composite в [0,1], Sentiment в [-1,1].
type Assessment struct {
	Profanity      bool     `json:"profanity"`
	SpamLikelihood float64  `json:"spam_likelihood"`
	Sentiment      float64  `json:"sentiment"`
	Composite      float64  `json:"composite"`
	Signals        []string `json:"signals,omitempty"`
}

// Веса composite score - настраиваемая политика, не структурный контракт
const (
	weightSpam       = 0.6
	weightNegativity = 0.4

	// Профанация поднимает composite как минимум до этого уровня
	profanityFloor = 0.9
)

var bannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "whore", "slut",
}

var positiveWords = []string{
	"great", "excellent", "amazing", "helpful", "clear", "fair",
	"engaging", "awesome", "best", "recommend", "wonderful", "kind",
}

var negativeWords = []string{
	"terrible", "awful", "horrible", "worst", "useless", "boring",
	"unfair", "rude", "hate", "waste", "confusing", "lazy",
}

// Scorer - чистый детерминированный скоринг текста.
// Без состояния и побочных эффектов: один и тот же текст
// при одной версии правил всегда даёт один и тот же результат.
type Scorer struct {
	bannedPatterns []*regexp.Regexp
	urlPattern     *regexp.Regexp
	emailPattern   *regexp.Regexp
	phonePattern   *regexp.Regexp
	allCapsPattern *regexp.Regexp
	wordPattern    *regexp.Regexp
}

// NewScorer компилирует набор правил один раз при старте
func NewScorer() *Scorer {
	s := &Scorer{}

	s.bannedPatterns = make([]*regexp.Regexp, 0, len(bannedWords))
	for _, word := range bannedWords {
		s.bannedPatterns = append(s.bannedPatterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}

	s.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	s.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	s.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	s.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	s.wordPattern = regexp.MustCompile(`[a-zA-Z']+`)

	return s
}

// Score оценивает текст отзыва. Пустой текст безопасен по построению.
func (s *Scorer) Score(text string) Assessment {
	if strings.TrimSpace(text) == "" {
		return Assessment{}
	}

	a := Assessment{}

	for _, re := range s.bannedPatterns {
		if re.MatchString(text) {
			a.Profanity = true
			a.Signals = append(a.Signals, "profanity")
			break
		}
	}

	a.SpamLikelihood, a.Signals = s.spamLikelihood(text, a.Signals)
	a.Sentiment = s.sentiment(text)

	// Негативность сама по себе не нарушение, но в сочетании со
	// спам-сигналами повышает вероятность злоупотребления
	negativity := 0.0
	if a.Sentiment < 0 {
		negativity = -a.Sentiment
	}

	a.Composite = weightSpam*a.SpamLikelihood + weightNegativity*negativity
	if a.Profanity && a.Composite < profanityFloor {
		a.Composite = profanityFloor
	}
	if a.Composite > 1 {
		a.Composite = 1
	}

	return a
}

// spamLikelihood суммирует независимые спам-сигналы с насыщением в 1.0
func (s *Scorer) spamLikelihood(text string, signals []string) (float64, []string) {
	score := 0.0

	if s.urlPattern.MatchString(text) {
		score += 0.35
		signals = append(signals, "url")
	}
	if s.emailPattern.MatchString(text) || s.phonePattern.MatchString(text) {
		score += 0.25
		signals = append(signals, "contact_info")
	}
	if hasRepeatedRun(text) {
		score += 0.2
		signals = append(signals, "repeated_chars")
	}
	if len(s.allCapsPattern.FindAllString(text, -1)) > 2 {
		score += 0.15
		signals = append(signals, "excessive_caps")
	}

	// Низкая доля уникальных слов - признак копипасты/повторов
	words := s.wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) >= 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.4 {
			score += 0.25
			signals = append(signals, "low_vocabulary")
		}
	}

	if score > 1 {
		score = 1
	}
	return score, signals
}

// hasRepeatedRun ищет серию из 4+ одинаковых символов подряд:
// букв без учёта регистра или знаков ! ? .
func hasRepeatedRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		r = unicode.ToLower(r)
		if r != prev {
			prev = r
			run = 1
			continue
		}
		run++
		if run >= 4 && isRunnable(r) {
			return true
		}
	}
	return false
}

func isRunnable(r rune) bool {
	return unicode.IsLetter(r) || r == '!' || r == '?' || r == '.'
}

// sentiment - лексиконная полярность в [-1,1]; 0 при отсутствии маркеров
func (s *Scorer) sentiment(text string) float64 {
	words := s.wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}

	pos, neg := 0, 0
	for _, w := range words {
		for _, p := range positiveWords {
			if w == p {
				pos++
				break
			}
		}
		for _, n := range negativeWords {
			if w == n {
				neg++
				break
			}
		}
	}

	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
