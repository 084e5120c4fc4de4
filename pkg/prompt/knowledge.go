// Package prompt loads a business knowledge base and renders the voice
// agent's system instructions from it.
package prompt

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	_ "embed"
)

//go:embed default.yaml
var defaultKnowledge []byte

// Knowledge describes the business the agent represents. JSON documents
// load as well since YAML is a superset.
type Knowledge struct {
	Agent           Agent           `yaml:"agent"`
	Company         Company         `yaml:"company_overview"`
	Contact         Contact         `yaml:"contact_information"`
	Services        Services        `yaml:"services"`
	Methodology     Methodology     `yaml:"methodology"`
	Leadership      Leadership      `yaml:"leadership"`
	Differentiators Differentiators `yaml:"differentiators"`
	FAQ             []FAQ           `yaml:"faq_candidates"`
}

// Agent is the assistant persona.
type Agent struct {
	Name string `yaml:"name"`
}

type Company struct {
	BrandName        string `yaml:"brand_name"`
	LegalName        string `yaml:"legal_name"`
	Tagline          string `yaml:"tagline"`
	Description      string `yaml:"description"`
	ValueProposition string `yaml:"value_proposition"`
}

type Contact struct {
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
	Website string `yaml:"website"`
}

type Service struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Services accepts either a list of services or a mapping from service ID
// to service. Mapping order is kept.
type Services []Service

func (s *Services) UnmarshalYAML(data []byte) error {
	var probe any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	if _, ok := probe.([]any); ok {
		var list []Service
		if err := yaml.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("services: %w", err)
		}
		*s = list
		return nil
	}
	var m yaml.MapSlice
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	out := make(Services, 0, len(m))
	for _, item := range m {
		raw, err := yaml.Marshal(item.Value)
		if err != nil {
			return fmt.Errorf("services: %v: %w", item.Key, err)
		}
		var svc Service
		if err := yaml.Unmarshal(raw, &svc); err != nil {
			return fmt.Errorf("services: %v: %w", item.Key, err)
		}
		if svc.ID == "" {
			svc.ID = fmt.Sprint(item.Key)
		}
		out = append(out, svc)
	}
	*s = out
	return nil
}

type Methodology struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Pillars     []Pillar `yaml:"pillars"`
}

// Pillar is a named point, used for methodology pillars and differentiators.
type Pillar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Leadership struct {
	Founder Person `yaml:"founder"`
}

type Person struct {
	Name       string `yaml:"name"`
	Title      string `yaml:"title"`
	Philosophy string `yaml:"philosophy"`
}

type Differentiators struct {
	WhyChooseUs []Pillar `yaml:"why_choose_us"`
}

type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Default returns the built-in knowledge base.
func Default() Knowledge {
	k, err := Parse(defaultKnowledge)
	if err != nil {
		panic(fmt.Sprintf("prompt: built-in knowledge base: %v", err))
	}
	return k
}

// Parse decodes a YAML or JSON knowledge base.
func Parse(data []byte) (Knowledge, error) {
	var k Knowledge
	if err := yaml.Unmarshal(data, &k); err != nil {
		return Knowledge{}, fmt.Errorf("prompt: parse knowledge base: %w", err)
	}
	if k.Company.BrandName == "" {
		return Knowledge{}, fmt.Errorf("prompt: knowledge base has no company_overview.brand_name")
	}
	if k.Agent.Name == "" {
		k.Agent.Name = DefaultAgentName
	}
	return k, nil
}

// Load reads a knowledge base file.
func Load(path string) (Knowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Knowledge{}, fmt.Errorf("prompt: %w", err)
	}
	return Parse(data)
}
