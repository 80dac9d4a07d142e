package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/pipeline"
)

const refineSystemPrompt = "You clean up speech transcripts. Fix punctuation and obvious recognition " +
	"errors without changing meaning, remove filler words, and detect chapter boundaries. " +
	"Respond with strict JSON: {\"text\": string, \"summary\": string, " +
	"\"chapters\": [{\"title\": string, \"summary\": string}]}. No markdown."

// Refiner sends the punctuated transcript through a chat-completion backend
// for contextual cleanup, chapter detection and summarization.
type Refiner struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewRefiner(cfg config.OpenAI) *Refiner {
	return &Refiner{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type refineOutput struct {
	Text     string `json:"text"`
	Summary  string `json:"summary"`
	Chapters []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	} `json:"chapters"`
}

func (r *Refiner) Run(ctx context.Context, inputPath, outputPath string, progress pipeline.ProgressFunc) (*pipeline.StageResult, error) {
	progress(10)

	transcript, err := readTranscript(inputPath, constant.StagePostProcessing)
	if err != nil {
		return nil, err
	}
	if transcript.Text == "" {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   fmt.Errorf("empty text for post-processing"),
		}
	}
	progress(20)

	refined, err := r.complete(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}
	progress(85)

	transcript.Text = refined.Text
	if err := writeTranscript(outputPath, transcript); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   err,
		}
	}

	chapters := make([]pipeline.ChapterNote, 0, len(refined.Chapters))
	for i, ch := range refined.Chapters {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		chapters = append(chapters, pipeline.ChapterNote{
			Title:   title,
			Summary: ch.Summary,
		})
	}

	progress(100)
	return &pipeline.StageResult{
		OutputPath: outputPath,
		Text:       refined.Text,
		Chapters:   chapters,
		Summary:    refined.Summary,
	}, nil
}

func (r *Refiner) complete(ctx context.Context, text string) (*refineOutput, error) {
	payload := map[string]any{
		"model": r.model,
		"messages": []map[string]string{
			{"role": "system", "content": refineSystemPrompt},
			{"role": "user", "content": text},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &pipeline.ProcessingError{Stage: constant.StagePostProcessing, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &pipeline.ProcessingError{Stage: constant.StagePostProcessing, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &pipeline.ProcessingError{
			Stage:     constant.StagePostProcessing,
			Transient: true,
			Err:       fmt.Errorf("chat completion request: %w", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			// 5xx from the backend is worth a whole-run retry; 4xx is not.
			Transient: resp.StatusCode >= http.StatusInternalServerError,
			Err:       fmt.Errorf("chat completion status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   fmt.Errorf("decode chat completion: %w", err),
		}
	}
	if len(completion.Choices) == 0 {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   fmt.Errorf("chat completion returned no choices"),
		}
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var refined refineOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &refined); err != nil {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   fmt.Errorf("parse refined output: %w", err),
		}
	}
	if refined.Text == "" {
		return nil, &pipeline.ProcessingError{
			Stage: constant.StagePostProcessing,
			Err:   fmt.Errorf("refined output has empty text"),
		}
	}
	return &refined, nil
}
