package document

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is configured.
// cl100k_base matches the OpenAI embedding models and is a reasonable
// proxy for token budgeting against other backends.
const DefaultEncoding = "cl100k_base"

// tiktokenTokenizer adapts a tiktoken BPE encoding to the Tokenizer
// interface. The encoding tables are loaded once at construction.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns a Tokenizer backed by the named tiktoken encoding.
// The first call per encoding downloads and caches the BPE vocabulary;
// set TIKTOKEN_CACHE_DIR to control the cache location in offline
// deployments.
func NewTiktoken(encoding string) (Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("document: loading tiktoken encoding %q: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
