package manager

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/retention"
)

func TestPolicyLoader_Parse(t *testing.T) {
	l := NewPolicyLoader(nil, nil)

	policies, err := l.Parse([]byte(regulatoryYAML+"\n"), "regulatory.yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("Parse() returned %d policies, want 1", len(policies))
	}

	p := policies[0]
	if p.ID != "regulatory-7y" || p.AppliesTo != retention.ScopePolicy {
		t.Errorf("policy = %+v", p)
	}
	if p.RetentionPeriodDays == nil || *p.RetentionPeriodDays != 2555 {
		t.Errorf("RetentionPeriodDays = %v, want 2555", p.RetentionPeriodDays)
	}
	if p.RetentionStartEvent != retention.StartPublished || p.ActionOnExpiry != retention.ActionArchive {
		t.Errorf("start/action = %s/%s", p.RetentionStartEvent, p.ActionOnExpiry)
	}
	if !p.ExcludeOnLegalHold || !p.IsActive {
		t.Errorf("defaults not applied: exclude=%v active=%v", p.ExcludeOnLegalHold, p.IsActive)
	}
	if p.Priority != 100 || p.SourceFile != "regulatory.yaml" {
		t.Errorf("priority/source = %d/%s", p.Priority, p.SourceFile)
	}
	if p.Condition == nil {
		t.Fatal("Condition not compiled")
	}
	ok, err := p.Condition.Eval(&records.Record{EntityType: records.EntityPolicy, Department: "Finance"})
	if err != nil || !ok {
		t.Errorf("Condition.Eval() = %v, %v; want true", ok, err)
	}
}

func TestPolicyLoader_ParseDefaults(t *testing.T) {
	l := NewPolicyLoader(nil, nil)

	policies, err := l.Parse([]byte(acknowledgementYAML), "ack.yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Parse() returned %d policies, want 2", len(policies))
	}
	if policies[0].RetentionPeriodDays != nil {
		t.Errorf("RetentionPeriodDays = %d, want nil (category default)", *policies[0].RetentionPeriodDays)
	}
	if policies[1].RetentionStartEvent != retention.StartCreated {
		t.Errorf("default start event = %s, want Created", policies[1].RetentionStartEvent)
	}
	if policies[1].IsActive || policies[1].ExcludeOnLegalHold {
		t.Errorf("explicit false not honoured: %+v", policies[1])
	}
}

func TestPolicyLoader_ParseEmpty(t *testing.T) {
	l := NewPolicyLoader(nil, nil)
	for _, doc := range []string{"", "policies:\n", "policies: []\n"} {
		policies, err := l.Parse([]byte(doc), "empty.yaml")
		if err != nil || len(policies) != 0 {
			t.Errorf("Parse(%q) = %d policies, %v", doc, len(policies), err)
		}
	}
}

func TestPolicyLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantParse bool
		wantField string
		wantLine  int
	}{
		{
			name:      "invalid yaml",
			doc:       "policies:\n  - id: [unclosed\n",
			wantParse: true,
		},
		{
			name:      "not a list",
			doc:       "policies: nope\n",
			wantParse: true,
			wantLine:  1,
		},
		{
			name:      "unknown top-level key",
			doc:       "rules: []\n",
			wantParse: true,
			wantLine:  1,
		},
		{
			name:      "unknown policy field",
			doc:       "policies:\n  - id: a\n    retention_days: 5\n",
			wantParse: true,
			wantLine:  3,
		},
		{
			name:      "wrong type",
			doc:       "policies:\n  - id: a\n    priority: high\n",
			wantParse: true,
		},
		{
			name:      "zero period",
			doc:       "policies:\n  - id: a\n    name: A\n    applies_to: All\n    retention_category: Standard\n    retention_period_days: 0\n    action_on_expiry: Archive\n",
			wantField: "retention_period_days",
			wantLine:  2,
		},
		{
			name:      "negative period",
			doc:       "policies:\n  - id: a\n    name: A\n    applies_to: All\n    retention_category: Standard\n    retention_period_days: -5\n    action_on_expiry: Archive\n",
			wantField: "retention_period_days",
		},
		{
			name:      "unknown scope",
			doc:       "policies:\n  - id: a\n    name: A\n    applies_to: Invoice\n    retention_category: Standard\n    action_on_expiry: Archive\n",
			wantField: "applies_to",
		},
		{
			name:      "bad condition",
			doc:       "policies:\n  - id: a\n    name: A\n    applies_to: All\n    retention_category: Standard\n    action_on_expiry: Archive\n    condition: 'record.department'\n",
			wantField: "condition",
			wantLine:  7,
		},
	}

	l := NewPolicyLoader(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Parse([]byte(tt.doc), "bad.yaml")
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), "bad.yaml") {
				t.Errorf("error %q does not name the file", err)
			}

			if tt.wantParse {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("error = %T %v, want *ParseError", err, err)
				}
				if tt.wantLine > 0 && pe.Line != tt.wantLine {
					t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %T %v, want *ValidationError", err, err)
			}
			if tt.wantLine > 0 && ve.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", ve.Line, tt.wantLine)
			}
			var ce *retention.PolicyConfigError
			if !errors.As(err, &ce) || ce.Field != tt.wantField {
				t.Errorf("PolicyConfigError = %+v, want field %s", ce, tt.wantField)
			}
		})
	}
}

func TestPolicyLoader_ReportsEveryMalformedPolicy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `policies:
  - id: ok
    name: OK
    applies_to: All
    retention_category: Standard
    action_on_expiry: Archive
  - id: bad-action
    name: Bad
    applies_to: All
    retention_category: Standard
    action_on_expiry: Shred
`)
	writeFile(t, dir, "nested/b.yml", `policies:
  - id: bad-category
    name: Bad
    applies_to: All
    retention_category: Forever
    action_on_expiry: Archive
`)

	l := NewPolicyLoader(nil, nil)
	_, err := l.Load(dir)
	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("Load() error = %v, want *ErrorList", err)
	}
	if len(list.Errors) != 2 {
		t.Fatalf("Load() reported %d errors, want 2: %v", len(list.Errors), err)
	}
	for _, want := range []string{"bad-action", "bad-category", "a.yaml", "b.yml"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q:\n%v", want, err)
		}
	}
}

func TestPolicyLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "regulatory.yaml", regulatoryYAML)
	writeFile(t, dir, "acks/ack.yml", acknowledgementYAML)
	writeFile(t, dir, "README.md", "not a policy")
	writeFile(t, dir, ".hidden/skip.yaml", "garbage: [")

	l := NewPolicyLoader(nil, nil)
	policies, err := l.Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(policies) != 3 {
		t.Fatalf("Load() returned %d policies, want 3", len(policies))
	}
	// Lexical file order: acks/ack.yml before regulatory.yaml.
	if policies[0].ID != "ack-standard" || policies[2].ID != "regulatory-7y" {
		t.Errorf("order = %s, %s, %s", policies[0].ID, policies[1].ID, policies[2].ID)
	}
}

func TestPolicyLoader_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.yaml", regulatoryYAML)
	writeFile(t, dir, "two.yaml", regulatoryYAML)

	_, err := NewPolicyLoader(nil, nil).Load(dir)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Load() error = %v, want *ValidationError", err)
	}
	if ve.PolicyID != "regulatory-7y" || !strings.Contains(ve.Message, "one.yaml") {
		t.Errorf("ValidationError = %+v", ve)
	}
}

func TestPolicyLoader_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.yaml", strings.Repeat("#", 64))
	bad := writeFile(t, dir, "latin1.yaml", "policies: []\n# \xff\n")
	empty := t.TempDir()

	l := NewPolicyLoader(&LoaderConfig{MaxFileSize: 32, AllowedExtensions: []string{".yaml"}}, nil)
	for _, path := range []string{dir + "/missing.yaml", big, empty} {
		var le *LoadError
		if _, err := l.Load(path); !errors.As(err, &le) {
			t.Errorf("Load(%s) error = %v, want *LoadError", path, err)
		}
	}

	l = NewPolicyLoader(nil, nil)
	var le *LoadError
	if _, err := l.LoadFromFile(bad); !errors.As(err, &le) || !strings.Contains(le.Message, "UTF-8") {
		t.Errorf("LoadFromFile(latin1) error = %v, want UTF-8 LoadError", err)
	}
}
