package arbiter

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/standardbeagle/chunker/internal/types"
)

// Tokenizer counts tokens in a span of text for token-limit enforcement.
// NewTokenizer with an empty model name yields the heuristic estimator; an
// exact tokenizer is opted into via NewTokenizer with a model name.
type Tokenizer interface {
	CountTokens(text string) int
}

// HeuristicTokenizer approximates a token count as
// len(text)/DefaultTokenCharsPerToken, with no model-specific vocabulary.
type HeuristicTokenizer struct{}

func (HeuristicTokenizer) CountTokens(text string) int {
	n := len(text) / types.DefaultTokenCharsPerToken
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// TiktokenTokenizer counts tokens exactly using a model's actual BPE
// vocabulary via pkoukk/tiktoken-go.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer resolves model to an encoding, trying it first as a
// model name (gpt-4, gpt-3.5-turbo, ...) and then as a raw encoding name
// (cl100k_base, ...), falling back to cl100k_base so an unrecognized model
// string still yields a usable exact tokenizer rather than an error.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &TiktokenTokenizer{enc: enc}, nil
	}
	if enc, err := tiktoken.GetEncoding(model); err == nil {
		return &TiktokenTokenizer{enc: enc}, nil
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("resolve tokenizer for model %q: %w", model, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// NewTokenizer builds the tokenizer configured by model: empty string keeps
// the default heuristic, anything else resolves an exact tiktoken encoding.
func NewTokenizer(model string) Tokenizer {
	if model == "" {
		return HeuristicTokenizer{}
	}
	tok, err := NewTiktokenTokenizer(model)
	if err != nil {
		return HeuristicTokenizer{}
	}
	return tok
}
