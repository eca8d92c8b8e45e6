package capabilities

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

const (
	recommendInclude = "Include"
	recommendExclude = "Exclude"
)

// classifierColumns must all be present in the input CSV header.
var classifierColumns = []string{"topic", "additional_context", "regulator", "link"}

const classifierSystem = "You are a compliance content classifier."

const classifierTemplate = `You are a compliance filtering assistant for a U.S. bank.

Given the topic, supporting context, and regulator source, decide whether this content is relevant for compliance monitoring.

Respond in JSON format like this:
{
  "recommendation": "Include" or "Exclude",
  "reason": "short explanation"
}

Topic: %s
Context: %s
Regulator: %s
`

// ClassifierInput is the input of the classifier capability.
type ClassifierInput struct {
	URL           string `json:"url" jsonschema_description:"URL of the regulator site"`
	ExtractedFile string `json:"extracted_file" jsonschema_description:"Path to the CSV file with extracted data"`
}

// ClassifierOptions configures the classifier from a manifest.
type ClassifierOptions struct {
	Model       string `json:"model"`
	Concurrency int    `json:"concurrency"`
}

type verdict struct {
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason"`
}

// NewClassifier asks the language model to mark each row of a CSV of
// regulatory updates as Include or Exclude, and writes the annotated CSV.
func NewClassifier(d Deps, opts ClassifierOptions) capability.Capability {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return capability.New("llm_exclusion_tool",
		"Uses an LLM to classify regulatory updates as relevant or excluded for compliance",
		func(ctx context.Context, in ClassifierInput) (map[string]any, error) {
			data, err := artifact.Read(in.ExtractedFile)
			if err != nil {
				return nil, err
			}
			header, rows, err := readUpdates(data)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", in.ExtractedFile, err)
			}
			if d.Completer == nil {
				return nil, errNoCompleter
			}

			col := make(map[string]int, len(header))
			for i, h := range header {
				col[h] = i
			}

			verdicts := make([]verdict, len(rows))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(opts.Concurrency)
			for i, row := range rows {
				g.Go(func() error {
					verdicts[i] = classify(gctx, d, opts.Model, row[col["topic"]], row[col["additional_context"]], row[col["regulator"]])
					return gctx.Err()
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}

			out, included, excluded, err := writeVerdicts(header, rows, verdicts, col["link"])
			if err != nil {
				return nil, err
			}
			ref, err := d.Store.Write(in.URL, "llm_exclusion_checked", ".csv", out, map[string]any{
				"rows":     len(rows),
				"included": included,
				"excluded": excluded,
			})
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":      in.URL,
				"included": included,
				"excluded": excluded,
			}, "exclusion_file", ref), nil
		})
}

// readUpdates parses the CSV and checks the required columns. Short rows are
// padded so every row has one cell per header column.
func readUpdates(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("CSV has no header")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	var missing []string
	for _, want := range classifierColumns {
		found := false
		for _, h := range header {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("required columns missing: %s", strings.Join(missing, ", "))
	}

	rows := records[1:]
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row
	}
	return header, rows, nil
}

// classify asks for one verdict. An unusable answer becomes an Exclude
// carrying the reason it was unusable.
func classify(ctx context.Context, d Deps, model, topic, background, regulator string) verdict {
	prompt := fmt.Sprintf(classifierTemplate,
		truncate(strings.TrimSpace(topic), 300),
		truncate(strings.TrimSpace(background), 1000),
		strings.TrimSpace(regulator))

	answer, err := d.Completer.Complete(ctx, core.Prompt{
		Model:       firstNonEmpty(model, d.ChatModel),
		System:      classifierSystem,
		User:        prompt,
		Temperature: 0.2,
	})
	if err != nil {
		d.Logger.Warn().Err(err).Msg("classifier call failed")
		return verdict{Recommendation: recommendExclude, Reason: "LLM error or invalid output: " + err.Error()}
	}
	v, err := parseVerdict(answer)
	if err != nil {
		d.Logger.Warn().Err(err).Msg("classifier answer unusable")
		return verdict{Recommendation: recommendExclude, Reason: "LLM error or invalid output: " + err.Error()}
	}
	return v
}

// parseVerdict reads the first JSON object in answer.
func parseVerdict(answer string) (verdict, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return verdict{}, fmt.Errorf("no JSON object in answer")
	}
	var v verdict
	if err := json.Unmarshal([]byte(answer[start:end+1]), &v); err != nil {
		return verdict{}, err
	}
	switch strings.ToLower(strings.TrimSpace(v.Recommendation)) {
	case "include":
		v.Recommendation = recommendInclude
	default:
		v.Recommendation = recommendExclude
	}
	if v.Reason == "" {
		v.Reason = "No reason provided"
	}
	return v, nil
}

// writeVerdicts renders the annotated CSV: the input columns without link,
// then Recommendation, Reason, Link and an empty action column for reviewers.
func writeVerdicts(header []string, rows [][]string, verdicts []verdict, linkCol int) ([]byte, int, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	outHeader := make([]string, 0, len(header)+3)
	for i, h := range header {
		if i != linkCol {
			outHeader = append(outHeader, h)
		}
	}
	outHeader = append(outHeader, "Recommendation", "Reason", "Link", "action")
	if err := w.Write(outHeader); err != nil {
		return nil, 0, 0, err
	}

	var included, excluded int
	for i, row := range rows {
		rec := make([]string, 0, len(outHeader))
		for j, cell := range row[:len(header)] {
			if j != linkCol {
				rec = append(rec, cell)
			}
		}
		link := strings.TrimSpace(row[linkCol])
		if !strings.HasPrefix(link, "http") {
			link = ""
		}
		rec = append(rec, verdicts[i].Recommendation, verdicts[i].Reason, link, "")
		if err := w.Write(rec); err != nil {
			return nil, 0, 0, err
		}
		if verdicts[i].Recommendation == recommendInclude {
			included++
		} else {
			excluded++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, 0, fmt.Errorf("writing CSV: %w", err)
	}
	return buf.Bytes(), included, excluded, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
