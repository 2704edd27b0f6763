package process

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	defaultCodec tokenizer.Codec
	codecMu      sync.RWMutex
	initialized  bool
)

var encodings = map[string]tokenizer.Encoding{
	"cl100k_base": tokenizer.Cl100kBase,
	"o200k_base":  tokenizer.O200kBase,
	"p50k_base":   tokenizer.P50kBase,
	"p50k_edit":   tokenizer.P50kEdit,
	"r50k_base":   tokenizer.R50kBase,
}

// InitTokenizer loads the named tiktoken encoding for CountTokens. Empty means cl100k_base.
func InitTokenizer(encoding string) error {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, ok := encodings[encoding]
	if !ok {
		return fmt.Errorf("unknown tokenizer encoding '%s'", encoding)
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return fmt.Errorf("loading tokenizer '%s': %w", encoding, err)
	}

	codecMu.Lock()
	defaultCodec = codec
	initialized = true
	codecMu.Unlock()
	return nil
}

// CountTokens returns the token count of text. Before InitTokenizer, or if encoding
// fails, it falls back to a four-bytes-per-token estimate.
func CountTokens(text string) int {
	codecMu.RLock()
	codec := defaultCodec
	ready := initialized
	codecMu.RUnlock()

	if !ready || codec == nil {
		return estimateTokens(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

func estimateTokens(text string) int {
	return len(text) / 4
}

// IsInitialized reports whether InitTokenizer has succeeded
func IsInitialized() bool {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return initialized
}
