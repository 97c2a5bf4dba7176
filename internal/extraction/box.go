// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/fairsailau/AI-clean-V2/internal/httputil"
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// structuredSystemMessage instructs the model to return a confidence triple
// for every field in a structured extraction.
const structuredSystemMessage = `You are an AI assistant specialized in extracting metadata from documents based on provided field definitions.
For each field, analyze the document content and extract the corresponding value.

CRITICALLY IMPORTANT:
1. For each field, respond with a JSON object containing:
   - "value": The extracted metadata value
   - "confidence": Your confidence level (High, Medium, or Low)
   - "reasoning": Brief explanation of your confidence assessment

2. Confidence Guidelines:
   - High: Clear, unambiguous information in the document
   - Medium: Information is present but may need verification
   - Low: Information is inferred or uncertain

3. If a field cannot be extracted, return null for the value with Low confidence.

Example Response:
{
  "invoice_number": {
    "value": "INV-12345",
    "confidence": "High",
    "reasoning": "Found in the top-right corner of the document"
  },
  "due_date": {
    "value": null,
    "confidence": "Low",
    "reasoning": "No clear due date found in document"
  }
}`

// freeformSystemTmpl wraps a caller-supplied prompt with the response
// format instructions for freeform extraction.
var freeformSystemTmpl = template.Must(template.New("freeform").Parse(`You are an AI assistant that extracts information from documents based on the following instructions:

{{.Prompt}}

IMPORTANT INSTRUCTIONS:
1. Respond with a JSON object where each key is a field name and each value is an object with:
   - "value": The extracted information
   - "confidence": Your confidence level (High, Medium, or Low)
   - "reasoning": Brief explanation of your confidence

2. For each field, provide the most accurate value you can find, even if confidence is not high.

3. If you're unsure about a field, set confidence to "Low" and explain why in the reasoning.

Example Response:
{
  "field_name": {
    "value": "example value",
    "confidence": "High",
    "reasoning": "Found in the document header"
  }
}`))

// boxAPIURL is the Box AI extract_structured endpoint. Package-level var
// for test substitution.
var boxAPIURL = "https://api.box.com/2.0/ai/extract_structured"

// BoxBackend calls the Box AI API to extract metadata from a file.
type BoxBackend struct {
	AccessToken string
	Model       string
	MaxRetries  int
	Client      *http.Client
}

// boxItem identifies the file to process.
type boxItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// agentText configures one text-handling mode of the extraction agent.
type agentText struct {
	Model         string `json:"model"`
	Mode          string `json:"mode"`
	SystemMessage string `json:"system_message"`
}

// boxAgent is the ai_agent block of the request body. Both text modes carry
// the same model and system message.
type boxAgent struct {
	Type      string    `json:"type"`
	LongText  agentText `json:"long_text"`
	BasicText agentText `json:"basic_text"`
}

// boxField is one field definition in the request body.
type boxField struct {
	Key         string      `json:"key"`
	DisplayName string      `json:"displayName"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Options     []boxOption `json:"options,omitempty"`
}

// boxOption is one allowed value of an enum field.
type boxOption struct {
	Key string `json:"key"`
}

// boxRequest is the request body for the extract_structured endpoint.
type boxRequest struct {
	Items   []boxItem  `json:"items"`
	AIAgent boxAgent   `json:"ai_agent"`
	Fields  []boxField `json:"fields,omitempty"`
}

// Extract calls the Box AI API for one file. Transport and auth failures
// are returned as errors before any confidence scoring runs.
func (b *BoxBackend) Extract(ctx context.Context, req Request) (RawResponse, error) {
	systemMessage, err := b.systemMessage(req)
	if err != nil {
		return RawResponse{}, err
	}

	model := req.Model
	if model == "" {
		model = b.Model
	}

	text := agentText{
		Model:         model,
		Mode:          "default",
		SystemMessage: systemMessage,
	}

	body := boxRequest{
		Items: []boxItem{{ID: req.FileID, Type: "file"}},
		AIAgent: boxAgent{
			Type:      "ai_agent_extract_structured",
			LongText:  text,
			BasicText: text,
		},
		Fields: apiFields(req.Template),
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return RawResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, boxAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return RawResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.AccessToken)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, b.MaxRetries)
	if err != nil {
		return RawResponse{}, fmt.Errorf("calling Box AI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return RawResponse{}, fmt.Errorf("Box AI API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var raw RawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return RawResponse{}, fmt.Errorf("decoding Box AI response: %w", err)
	}

	return raw, nil
}

// systemMessage picks the structured instructions or renders the freeform
// template around the caller's prompt.
func (b *BoxBackend) systemMessage(req Request) (string, error) {
	if req.Template != nil {
		return structuredSystemMessage, nil
	}

	var buf bytes.Buffer
	if err := freeformSystemTmpl.Execute(&buf, struct{ Prompt string }{Prompt: req.Prompt}); err != nil {
		return "", fmt.Errorf("rendering freeform prompt: %w", err)
	}
	return buf.String(), nil
}

// apiFields converts a template into the request's field definitions.
func apiFields(tmpl *types.Template) []boxField {
	if tmpl == nil {
		return nil
	}

	fields := make([]boxField, 0, len(tmpl.Fields))
	for name, def := range tmpl.Fields {
		field := boxField{
			Key:         name,
			DisplayName: def.DisplayName,
			Type:        string(def.Type),
			Description: def.Description,
		}
		if field.DisplayName == "" {
			field.DisplayName = name
		}
		if field.Type == "" {
			field.Type = string(types.FieldString)
		}
		for _, opt := range def.Options {
			field.Options = append(field.Options, boxOption{Key: opt})
		}
		fields = append(fields, field)
	}
	return fields
}
