package chunk

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncodingName is the tiktoken encoding used to estimate token
// counts for the chunk_size_tokens config knob (spec §6). cl100k_base is
// a reasonable general-purpose choice independent of any specific LLM.
const tokenEncodingName = "cl100k_base"

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

func getTokenizer() *tiktoken.Tiktoken {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEncodingName)
		if err == nil {
			tokenizer = enc
		}
	})
	return tokenizer
}

// CapacityFromTokens converts a configured chunk_size_tokens value into a
// character capacity by sampling the tokenizer's average bytes-per-token
// on a representative corpus slice, falling back to the documented ~4
// chars-per-token approximation when the tokenizer is unavailable.
func CapacityFromTokens(tokens int, sample string) int {
	if tokens <= 0 {
		return DefaultCapacity
	}

	enc := getTokenizer()
	if enc == nil || sample == "" {
		return tokens * 4
	}

	ids := enc.Encode(sample, nil, nil)
	if len(ids) == 0 {
		return tokens * 4
	}

	charsPerToken := float64(len(sample)) / float64(len(ids))
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	return int(float64(tokens) * charsPerToken)
}

// EstimateTokens counts tokens in text using the same encoding, falling
// back to len(text)/4 when the tokenizer is unavailable.
func EstimateTokens(text string) int {
	enc := getTokenizer()
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
