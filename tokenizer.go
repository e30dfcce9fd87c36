package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer counts the tokens of a piece of text.
type Tokenizer interface {
	CountTokens(text string) (int, error)
}

// TokenizerConfig selects and locates a tokenizer.
type TokenizerConfig struct {
	Type  string // tiktoken or huggingface
	Model string
	File  string // local tokenizer.json, huggingface only
}

const (
	defaultTiktokenModel = "gpt-4o"
	defaultHFModel       = "gpt2"
)

// newTokenizer returns the tokenizer described by cfg.
func newTokenizer(cfg TokenizerConfig) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "tiktoken":
		return newTiktokenCounter(cfg.Model)
	case "huggingface", "hf":
		return newHFCounter(cfg.Model, cfg.File)
	default:
		return nil, fmt.Errorf("unsupported tokenizer type %q: use tiktoken or huggingface", cfg.Type)
	}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) CountTokens(text string) (int, error) {
	return len(c.enc.EncodeOrdinary(text)), nil
}

// newTiktokenCounter accepts a model name (gpt-4o) or an encoding name
// (cl100k_base). Unknown names fall back to the default model.
func newTiktokenCounter(model string) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if byName, nameErr := tiktoken.GetEncoding(model); nameErr == nil {
			return tiktokenCounter{enc: byName}, nil
		}
		fmt.Fprintf(os.Stderr, "Warning: tiktoken model %q not found, using %q: %v\n", model, defaultTiktokenModel, err)
		if enc, err = tiktoken.EncodingForModel(defaultTiktokenModel); err != nil {
			return nil, fmt.Errorf("failed to load tiktoken encoding for %s: %w", defaultTiktokenModel, err)
		}
	}
	return tiktokenCounter{enc: enc}, nil
}

type hfCounter struct {
	tk *hf.Tokenizer
}

func (c hfCounter) CountTokens(text string) (int, error) {
	en, err := c.tk.EncodeSingle(text)
	if err != nil {
		return 0, err
	}
	return len(en.Ids), nil
}

// newHFCounter loads tokenizer.json from file, or from the HuggingFace cache
// for model (downloading it when missing).
func newHFCounter(model, file string) (Tokenizer, error) {
	if file == "" {
		if model == "" {
			model = defaultHFModel
		}
		fmt.Printf("Loading HuggingFace tokenizer for model: %s (this may download files)\n", model)
		cached, err := hf.CachedPath(model, "tokenizer.json")
		if err != nil {
			return nil, fmt.Errorf("failed to locate tokenizer.json for model %s: %w", model, err)
		}
		file = cached
	}
	tk, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer from %s: %w", file, err)
	}
	return hfCounter{tk: tk}, nil
}

// tokenChunkSize is how much decoded text a tokenCounter holds before it
// counts up to the last line break.
const tokenChunkSize = 64 << 10

// tokenCounter counts the tokens of everything written to it. Long bodies
// are counted in line-aligned chunks, so an entry is never held whole.
type tokenCounter struct {
	tk      Tokenizer
	pending []byte
	total   int
	err     error
}

func newTokenCounter(tk Tokenizer) *tokenCounter {
	return &tokenCounter{tk: tk}
}

func (c *tokenCounter) Write(p []byte) (int, error) {
	c.pending = append(c.pending, p...)
	if len(c.pending) >= tokenChunkSize {
		if i := bytes.LastIndexByte(c.pending, '\n'); i >= 0 {
			c.count(c.pending[:i+1])
			c.pending = append(c.pending[:0], c.pending[i+1:]...)
		}
	}
	return len(p), nil
}

func (c *tokenCounter) count(chunk []byte) {
	if c.err != nil {
		return
	}
	n, err := c.tk.CountTokens(string(chunk))
	if err != nil {
		c.err = err
		return
	}
	c.total += n
}

// Count counts any pending text and returns the total. A tokenizer error
// makes the total unreliable, so it is reported with a zero count.
func (c *tokenCounter) Count() (int, error) {
	if len(c.pending) > 0 {
		c.count(c.pending)
		c.pending = c.pending[:0]
	}
	if c.err != nil {
		return 0, c.err
	}
	return c.total, nil
}

// tee returns w, also feeding c when c is non-nil.
func (c *tokenCounter) tee(w io.Writer) io.Writer {
	if c == nil {
		return w
	}
	return io.MultiWriter(w, c)
}
