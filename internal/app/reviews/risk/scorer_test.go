package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_EmptyText(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("   ")

	assert.False(t, a.Profanity)
	assert.Equal(t, 0.0, a.SpamLikelihood)
	assert.Equal(t, 0.0, a.Composite)
	assert.Empty(t, a.Signals)
}

func TestScore_CleanText(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("The lectures were clear and the professor was helpful during office hours.")

	assert.False(t, a.Profanity)
	assert.Equal(t, 0.0, a.SpamLikelihood)
	assert.Equal(t, 0.0, a.Composite)
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer()
	text := "Visit www.cheap-essays.example now!!!! BEST DEALS EVER, CALL 555-123-4567"

	first := scorer.Score(text)
	second := scorer.Score(text)

	assert.Equal(t, first, second)
}

func TestScore_ProfanityFloor(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("This class was shit.")

	assert.True(t, a.Profanity)
	assert.GreaterOrEqual(t, a.Composite, 0.9)
	assert.Contains(t, a.Signals, "profanity")
}

func TestScore_ProfanityWordBoundary(t *testing.T) {
	scorer := NewScorer()

	// "class" содержит "ass" как подстроку, но не как слово
	a := scorer.Score("I took this class and passed the assessment.")

	assert.False(t, a.Profanity)
}

func TestScore_URLSignal(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("Buy notes at https://notes.example/buy today")

	assert.Contains(t, a.Signals, "url")
	assert.InDelta(t, 0.35, a.SpamLikelihood, 0.001)
}

func TestScore_ContactInfoSignal(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("Email me at tutor@example.com for answers")

	assert.Contains(t, a.Signals, "contact_info")
}

func TestScore_RepeatedCharsSignal(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("This course is sooooooo bad!!!!!")

	assert.Contains(t, a.Signals, "repeated_chars")
}

func TestHasRepeatedRun(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"run of letters", "loooool", true},
		{"run of exclamation marks", "worst!!!!", true},
		{"mixed case counts as one run", "SOOOOo bad", true},
		{"exactly four", "hmmmm", true},
		{"three is not a run", "hmmm ok...", false},
		{"digits do not count", "room 1111 was fine", false},
		{"plain text", "a perfectly normal review", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasRepeatedRun(tt.text))
		})
	}
}

func TestScore_LowVocabularySignal(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("bad bad bad bad bad bad bad bad bad bad bad bad")

	assert.Contains(t, a.Signals, "low_vocabulary")
}

func TestScore_SpamSignalsAccumulate(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("GREAT DEALS HERE NOW!!!! visit www.spam.example or call 555-123-4567 nowwwww")

	assert.GreaterOrEqual(t, a.SpamLikelihood, 0.6)
	assert.Greater(t, a.Composite, 0.0)
}

func TestScore_SentimentPositive(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("Excellent professor, clear explanations, best course I took.")

	assert.Greater(t, a.Sentiment, 0.0)
	assert.Equal(t, 0.0, a.Composite)
}

func TestScore_SentimentNegative(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("Terrible and useless course, worst experience, total waste.")

	assert.Less(t, a.Sentiment, 0.0)
	// Негативность без спам-сигналов даёт composite < порога авто-флага
	assert.Less(t, a.Composite, 0.8)
}

func TestScore_CompositeCapped(t *testing.T) {
	scorer := NewScorer()

	a := scorer.Score("WORST SHIT EVER!!!! terrible awful horrible useless www.spam.example call 555-123-4567 hateee HATE THIS WASTE")

	assert.LessOrEqual(t, a.Composite, 1.0)
	assert.True(t, a.Profanity)
}
