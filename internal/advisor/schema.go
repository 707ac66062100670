package advisor

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"github.com/google/generative-ai-go/genai"
)

func sectionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":         {Type: genai.TypeString},
			"summary":       {Type: genai.TypeString},
			"bullet_points": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"title", "summary", "bullet_points"},
	}
}

// AdviceSchema is the response schema sent to the model. ParseAdvice checks
// the model output against the same value.
func AdviceSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"project_overview":  sectionSchema(),
			"frontend_analysis": sectionSchema(),
			"backend_analysis":  sectionSchema(),
			"ai_use_cases": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":                {Type: genai.TypeString},
						"description":         {Type: genai.TypeString},
						"implementation_idea": {Type: genai.TypeString},
					},
					Required: []string{"name", "description", "implementation_idea"},
				},
			},
		},
		Required: []string{"project_overview", "frontend_analysis", "backend_analysis", "ai_use_cases"},
	}
}

// ParseAdvice validates raw model output against AdviceSchema and decodes it.
// Output missing a required field or carrying a value of the wrong type is
// rejected rather than decoded into zero values.
func ParseAdvice(text string) (*models.AdviceResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	var raw any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if err := checkSchema("response", AdviceSchema(), raw); err != nil {
		return nil, err
	}

	var advice models.AdviceResponse
	if err := json.Unmarshal([]byte(text), &advice); err != nil {
		return nil, fmt.Errorf("decode advice: %w", err)
	}
	return &advice, nil
}

func checkSchema(path string, schema *genai.Schema, value any) error {
	if value == nil {
		if schema.Nullable {
			return nil
		}
		return fmt.Errorf("%s: value is null", path)
	}

	switch schema.Type {
	case genai.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		for _, name := range schema.Required {
			if _, ok := obj[name]; !ok {
				return fmt.Errorf("%s: missing required field %q", path, name)
			}
		}
		names := make([]string, 0, len(schema.Properties))
		for name := range schema.Properties {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			v, ok := obj[name]
			if !ok {
				continue
			}
			if err := checkSchema(path+"."+name, schema.Properties[name], v); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		if schema.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := checkSchema(fmt.Sprintf("%s[%d]", path, i), schema.Items, item); err != nil {
				return err
			}
		}
	case genai.TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
	case genai.TypeNumber, genai.TypeInteger:
		if _, ok := value.(json.Number); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
	case genai.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
	}
	return nil
}
