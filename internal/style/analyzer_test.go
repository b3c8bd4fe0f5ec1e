package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formalEmail = `Dear Mr. Smith,

I would like to request a meeting to discuss the quarterly report. Please find the agenda attached. I appreciate your consideration.

Sincerely,
Jane Doe`

const casualEmail = `hey dude,

wanna grab lunch? it's gonna be awesome lol. can't wait!

cheers`

func phraseTexts(obs Observation, kind PhraseKind) []string {
	var out []string
	for _, p := range obs.Phrases {
		if p.Kind == kind {
			out = append(out, p.Text)
		}
	}
	return out
}

func TestExtractFeatures_Formal(t *testing.T) {
	obs := ExtractFeatures(formalEmail)

	assert.False(t, obs.Empty)
	assert.Greater(t, obs.Formality, 0.7)
	assert.Equal(t, []string{"Dear"}, phraseTexts(obs, Salutation))
	assert.Equal(t, []string{"Sincerely"}, phraseTexts(obs, Closing))
}

func TestExtractFeatures_Casual(t *testing.T) {
	obs := ExtractFeatures(casualEmail)

	assert.Less(t, obs.Formality, 0.3)
	assert.Equal(t, []string{"Hey"}, phraseTexts(obs, Salutation))
	assert.Equal(t, []string{"Cheers"}, phraseTexts(obs, Closing))
}

func TestExtractFeatures_Directness(t *testing.T) {
	direct := ExtractFeatures("Please send me the report by Friday. I need it for the board meeting.")
	hedging := ExtractFeatures("I was wondering if perhaps you might have time next week. No rush, whenever you get a chance.")

	assert.Greater(t, direct.Directness, 0.8)
	assert.Less(t, hedging.Directness, 0.2)
}

func TestExtractFeatures_Complexity(t *testing.T) {
	simple := ExtractFeatures("See you soon. Thanks a lot. Bye now.")
	complex := ExtractFeatures("Following our comprehensive evaluation of the infrastructure modernization proposal, the architecture committee determined that considerable additional investigation regarding operational sustainability, organizational readiness, and long-term maintenance expenditure would be necessary before any definitive recommendation could responsibly be communicated to leadership.")

	assert.Less(t, simple.Complexity, 0.3)
	assert.Greater(t, complex.Complexity, 0.8)
}

func TestExtractFeatures_Transitions(t *testing.T) {
	obs := ExtractFeatures("The numbers look fine. However, the timeline is tight. In addition, we lack a tester.")
	assert.ElementsMatch(t, []string{"however", "in addition"}, phraseTexts(obs, Transition))
}

func TestExtractFeatures_EmptyIsNeutral(t *testing.T) {
	for _, text := range []string{"", "   \n\t", "!!! 123 ...", "> quoted only"} {
		obs := ExtractFeatures(text)
		assert.True(t, obs.Empty, "text %q", text)
		assert.Equal(t, NeutralObservation(), obs, "text %q", text)
	}
}

func TestExtractFeatures_Deterministic(t *testing.T) {
	a := ExtractFeatures(formalEmail)
	b := ExtractFeatures(formalEmail)
	assert.Equal(t, a, b)
}

func TestExtractFeatures_StripsHeadersAndQuotedReply(t *testing.T) {
	text := "From: bob@example.com\nSubject: lunch\n\nHey there, see you at noon.\n\nOn Mon, Jan 1, 2024 at 10:00 AM Bob wrote:\nDear sir, sincerely yours"
	obs := ExtractFeatures(text)

	require.False(t, obs.Empty)
	assert.Equal(t, []string{"Hey"}, phraseTexts(obs, Salutation))
	assert.Empty(t, phraseTexts(obs, Closing))
}

func TestExtractFeatures_ScoresInRange(t *testing.T) {
	for _, text := range []string{formalEmail, casualEmail, "ok", "PLEASE!!! NOW!!! ASAP!!!"} {
		obs := ExtractFeatures(text)
		for _, v := range []float64{obs.Formality, obs.Complexity, obs.Directness} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
