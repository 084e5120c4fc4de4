package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	k := Default()
	if k.Agent.Name != "Aria" || k.Company.BrandName != "Northwind Studio" {
		t.Fatalf("Default = %+v", k.Agent)
	}
	ids := make([]string, len(k.Services))
	for i, s := range k.Services {
		ids[i] = s.ID
	}
	if got := strings.Join(ids, ","); got != "branding,web_design,marketing" {
		t.Errorf("service order = %s", got)
	}
}

func TestParse_JSONDocument(t *testing.T) {
	doc := `{
		"company_overview": {"brand_name": "Acme", "tagline": "We build"},
		"contact_information": {"phone": "555-0100"},
		"services": [{"id": "web", "title": "Websites", "description": "Sites."}],
		"faq_candidates": [{"question": "Q1?", "answer": "A1."}]
	}`
	k, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if k.Company.BrandName != "Acme" || len(k.Services) != 1 || k.Services[0].Title != "Websites" {
		t.Errorf("Parse = %+v", k)
	}
	if k.Agent.Name != DefaultAgentName {
		t.Errorf("agent name = %q", k.Agent.Name)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, doc := range []string{
		"company_overview: [",
		"contact_information:\n  phone: 1\n",
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%q) succeeded", doc)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	if err := os.WriteFile(path, []byte("company_overview:\n  brand_name: Fern Labs\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if k.Company.BrandName != "Fern Labs" {
		t.Errorf("brand = %q", k.Company.BrandName)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestInstructions(t *testing.T) {
	got, err := Instructions(Default())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`You are "Aria", an AI voice assistant representing Northwind Studio.`,
		"our brand identity, web design, and digital marketing",
		"consultation with Morgan Lee",
		"### Web Design",
		"- **Discover**: Learn the business",
		"## Why Choose Northwind Studio",
		"immediately call the capture_lead function",
		"Use the schedule_callback function",
		"Call the generate_summary function",
		"Q: Do you offer a free consultation?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
	if strings.Contains(got, "Do you write website copy?") {
		t.Errorf("instructions include more than %d FAQ entries", MaxFAQ)
	}
	if strings.Contains(got, "<no value>") {
		t.Error("instructions contain <no value>")
	}
}

func TestInstructions_Minimal(t *testing.T) {
	got, err := Instructions(Knowledge{Company: Company{BrandName: "Fern Labs"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"## Services Offered", "## Founder", "## Handling Questions", "Tagline", "consultation with"} {
		if strings.Contains(got, absent) {
			t.Errorf("minimal instructions contain %q", absent)
		}
	}
	if !strings.Contains(got, "Always identify yourself as Aria from Fern Labs.") {
		t.Errorf("instructions = %s", got)
	}
}

func TestServiceList(t *testing.T) {
	tests := []struct {
		titles []string
		want   string
	}{
		{nil, "services"},
		{[]string{"Logos"}, "logos"},
		{[]string{"Logos", "Sites"}, "logos and sites"},
		{[]string{"Logos", "Sites", "Ads"}, "logos, sites, and ads"},
	}
	for _, tt := range tests {
		var s Services
		for _, title := range tt.titles {
			s = append(s, Service{Title: title})
		}
		if got := serviceList(s); got != tt.want {
			t.Errorf("serviceList(%v) = %q, want %q", tt.titles, got, tt.want)
		}
	}
}
