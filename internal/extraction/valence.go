package extraction

import "strings"

// polarity classifies an emotion as contributing positively, negatively,
// or neither to the sentiment ratio (spec §4.3: `(#positive-#negative)/#matched`).
type polarity int

const (
	polarityNeutral polarity = 0
	polarityPositive polarity = 1
	polarityNegative polarity = -1
)

// emotionKeyword is one row of the fixed emotion table: keywords mapped
// to an emotion, its polarity, and an intensity (spec §4.3: "each row:
// keywords, emotion, intensity").
type emotionKeyword struct {
	word      string
	emotion   string
	polarity  polarity
	intensity float64
}

var emotionTable = []emotionKeyword{
	{"happy", "joy", polarityPositive, 0.6},
	{"excited", "joy", polarityPositive, 0.8},
	{"thrilled", "joy", polarityPositive, 0.9},
	{"glad", "joy", polarityPositive, 0.4},
	{"proud", "joy", polarityPositive, 0.6},
	{"grateful", "joy", polarityPositive, 0.5},
	{"love", "joy", polarityPositive, 0.7},
	{"hopeful", "joy", polarityPositive, 0.4},

	{"sad", "sadness", polarityNegative, 0.6},
	{"depressed", "sadness", polarityNegative, 0.9},
	{"down", "sadness", polarityNegative, 0.4},
	{"lonely", "sadness", polarityNegative, 0.5},
	{"disappointed", "sadness", polarityNegative, 0.5},
	{"grief", "sadness", polarityNegative, 0.8},

	{"angry", "anger", polarityNegative, 0.7},
	{"furious", "anger", polarityNegative, 0.9},
	{"frustrated", "anger", polarityNegative, 0.6},
	{"annoyed", "anger", polarityNegative, 0.4},
	{"irritated", "anger", polarityNegative, 0.4},

	{"anxious", "fear", polarityNegative, 0.6},
	{"worried", "fear", polarityNegative, 0.6},
	{"scared", "fear", polarityNegative, 0.7},
	{"afraid", "fear", polarityNegative, 0.7},
	{"nervous", "fear", polarityNegative, 0.5},
	{"stressed", "fear", polarityNegative, 0.6},
	{"overwhelmed", "fear", polarityNegative, 0.7},

	{"surprised", "surprise", polarityNeutral, 0.5},
	{"shocked", "surprise", polarityNegative, 0.7},
	{"amazed", "surprise", polarityPositive, 0.7},

	{"disgusted", "disgust", polarityNegative, 0.6},
	{"tired", "neutral", polarityNeutral, 0.3},
	{"calm", "neutral", polarityPositive, 0.2},
	{"okay", "neutral", polarityNeutral, 0.1},
}

// Valence is the extraction pipeline's emotional-signal output (spec
// §4.3, stored as storage.EmotionalSample by the caller). Secondary holds
// up to 3 runner-up emotions.
type Valence struct {
	PrimaryEmotion string
	Secondary      []string
	Sentiment      float64
	Intensity      float64
}

// extractValence scans text against the fixed emotion table. The primary
// emotion is the highest-intensity distinct match; up to 3 secondary
// emotions follow by intensity; sentiment is the positive/negative match
// balance. No match yields neutral valence with intensity 0.5, sentiment 0.
func extractValence(text string) Valence {
	lower := strings.ToLower(text)
	type hit struct {
		emotion   string
		polarity  polarity
		intensity float64
	}
	var hits []hit
	seen := map[string]int{}
	for _, kw := range emotionTable {
		if !strings.Contains(lower, kw.word) {
			continue
		}
		if i, ok := seen[kw.emotion]; ok {
			if kw.intensity > hits[i].intensity {
				hits[i].intensity = kw.intensity
			}
			continue
		}
		seen[kw.emotion] = len(hits)
		hits = append(hits, hit{kw.emotion, kw.polarity, kw.intensity})
	}

	if len(hits) == 0 {
		return Valence{PrimaryEmotion: "neutral", Intensity: 0.5, Sentiment: 0}
	}

	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].intensity > hits[j-1].intensity; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	var positive, negative int
	for _, h := range hits {
		switch h.polarity {
		case polarityPositive:
			positive++
		case polarityNegative:
			negative++
		}
	}

	v := Valence{
		PrimaryEmotion: hits[0].emotion,
		Intensity:      hits[0].intensity,
		Sentiment:      float64(positive-negative) / float64(len(hits)),
	}
	for i := 1; i < len(hits) && i <= 3; i++ {
		v.Secondary = append(v.Secondary, hits[i].emotion)
	}
	return v
}
