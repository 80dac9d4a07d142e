package processors

import (
	"context"
	"strings"
	"unicode"

	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

// Punctuator applies baseline punctuation and casing to the raw transcript
// text. The refine stage does the heavy lifting when it is enabled; this pass
// guarantees a readable result either way.
type Punctuator struct{}

func NewPunctuator() *Punctuator {
	return &Punctuator{}
}

func (p *Punctuator) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(10)

	transcript, err := readTranscript(inputPath, constant.StagePunctuation)
	if err != nil {
		return nil, err
	}
	progress(30)

	transcript.Text = punctuate(transcript.Text)
	progress(80)

	if err := writeTranscript(outputPath, transcript); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePunctuation,
			Err:   err,
		}
	}

	progress(100)
	return &pipeline.StageResult{
		OutputPath: outputPath,
		Transcript: transcript,
		Text:       transcript.Text,
	}, nil
}

// punctuate collapses whitespace, capitalizes sentence starts and makes sure
// the text ends with a terminal mark.
func punctuate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return text
	}

	runes := []rune(text)
	capitalizeNext := true
	for i, r := range runes {
		if capitalizeNext && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			capitalizeNext = false
			continue
		}
		switch r {
		case '.', '!', '?':
			capitalizeNext = true
		}
	}
	text = string(runes)

	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text
}
