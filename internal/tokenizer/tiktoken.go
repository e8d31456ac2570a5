package tokenizer

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// Tiktoken counts tokens with an OpenAI BPE vocabulary.
type Tiktoken struct {
	codec tokenizer.Codec
}

// NewTiktoken loads the vocabulary for encoding, or for model when encoding
// is empty. Both empty selects DefaultModel.
func NewTiktoken(model, encoding string) (*Tiktoken, error) {
	var (
		codec tokenizer.Codec
		err   error
	)
	switch {
	case encoding != "":
		codec, err = tokenizer.Get(tokenizer.Encoding(encoding))
		if err != nil {
			return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
		}
	default:
		if model == "" {
			model = DefaultModel
		}
		codec, err = tokenizer.ForModel(tokenizer.Model(model))
		if err != nil {
			return nil, fmt.Errorf("loading vocabulary for model %q: %w", model, err)
		}
	}

	log.Debug(log.CatTokenizer, "Vocabulary loaded", "codec", codec.GetName())
	return &Tiktoken{codec: codec}, nil
}

// Name returns the vocabulary name.
func (t *Tiktoken) Name() string {
	return t.codec.GetName()
}

// Count implements Counter.
func (t *Tiktoken) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	return len(ids), nil
}
