package story

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestEvaluator(t *testing.T, timeout time.Duration) *evaluator {
	t.Helper()
	visits := map[string]int{"Hall": 2}
	e, err := newEvaluator(timeout,
		func(name string) int { return visits[name] },
		func() string { return "Hall" },
	)
	if err != nil {
		t.Fatalf("newEvaluator() error: %v", err)
	}
	return e
}

func TestTranslateExpr(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		wantJS   []string
		wantVars []string
	}{
		{
			name:     "comparison passes through",
			expr:     "$gold > 3",
			wantJS:   []string{"$gold > 3"},
			wantVars: []string{"$gold"},
		},
		{
			name:     "is and is not",
			expr:     "$a is 1 and $b is not 2",
			wantJS:   []string{"===", "&&", "!=="},
			wantVars: []string{"$a", "$b"},
		},
		{
			name:     "or and not",
			expr:     "not $door or $key",
			wantJS:   []string{"!", "||"},
			wantVars: []string{"$door", "$key"},
		},
		{
			name:   "keywords inside strings are kept",
			expr:   `"this is it and more"`,
			wantJS: []string{`"this is it and more"`},
		},
		{
			name:   "words containing keywords are kept",
			expr:   "android + island",
			wantJS: []string{"android + island"},
		},
		{
			name:     "repeated variable reported once",
			expr:     "$x + $x",
			wantVars: []string{"$x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js, vars := translateExpr(tt.expr)
			for _, want := range tt.wantJS {
				if !strings.Contains(js, want) {
					t.Errorf("translateExpr(%q) = %q, want it to contain %q", tt.expr, js, want)
				}
			}
			if fmt.Sprint(vars) != fmt.Sprint(tt.wantVars) {
				t.Errorf("translateExpr(%q) vars = %v, want %v", tt.expr, vars, tt.wantVars)
			}
		})
	}
}

func TestEvaluator_Condition(t *testing.T) {
	e := newTestEvaluator(t, time.Second)
	if err := e.assign("$gold", "5"); err != nil {
		t.Fatalf("assign() error: %v", err)
	}
	if err := e.assign("$name", `"Ada"`); err != nil {
		t.Fatalf("assign() error: %v", err)
	}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "$gold > 3", want: true},
		{expr: "$gold is 5", want: true},
		{expr: "$gold is not 5", want: false},
		{expr: "$gold > 3 and not ($gold is 4)", want: true},
		{expr: "$gold < 3 or $name is \"Ada\"", want: true},
		{expr: "$unset is 0", want: true},
		{expr: `visits("Hall") is 2`, want: true},
		{expr: `visited("Cellar")`, want: false},
		{expr: `passage() is "Hall"`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.condition(tt.expr)
			if err != nil {
				t.Fatalf("condition(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("condition(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluator_Text(t *testing.T) {
	e := newTestEvaluator(t, time.Second)
	if err := e.assign("$gold", "2 + 3"); err != nil {
		t.Fatalf("assign() error: %v", err)
	}

	tests := []struct {
		expr string
		want string
	}{
		{expr: "$gold", want: "5"},
		{expr: `"coins: " + $gold`, want: "coins: 5"},
		{expr: "$gold / 2", want: "2.5"},
		{expr: "$gold > 1", want: "true"},
		{expr: "undefined", want: ""},
		{expr: "null", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.text(tt.expr)
			if err != nil {
				t.Fatalf("text(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("text(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	e := newTestEvaluator(t, time.Second)

	for _, expr := range []string{"$gold +", "", "missingFunction()"} {
		if _, err := e.eval(expr); err == nil {
			t.Errorf("eval(%q) expected error", expr)
		}
	}

	if err := e.assign("gold", "1"); err == nil {
		t.Error("assign() without $ expected error")
	}
}

func TestEvaluator_Timeout(t *testing.T) {
	e := newTestEvaluator(t, 20*time.Millisecond)

	_, err := e.eval("while (true) {}")
	if err == nil {
		t.Fatal("eval() of infinite loop expected error")
	}
	if !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("eval() error = %v, want interrupted", err)
	}

	got, err := e.text("1 + 1")
	if err != nil {
		t.Fatalf("runtime unusable after interrupt: %v", err)
	}
	if got != "2" {
		t.Errorf("text() = %q, want %q", got, "2")
	}
}

func TestEvaluator_Variables(t *testing.T) {
	e := newTestEvaluator(t, time.Second)
	_ = e.assign("$gold", "7")
	_ = e.assign("$hero", `"Ada"`)
	// Reading an unset variable does not make it a story variable.
	_, _ = e.eval("$ghost")

	vars := e.variables()
	if len(vars) != 2 {
		t.Fatalf("variables() = %v, want 2 entries", vars)
	}
	if fmt.Sprint(vars["gold"]) != "7" {
		t.Errorf("gold = %v, want 7", vars["gold"])
	}
	if vars["hero"] != "Ada" {
		t.Errorf("hero = %v, want Ada", vars["hero"])
	}
}

func TestIsVariableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"$gold", true},
		{"$_x1", true},
		{"$", false},
		{"gold", false},
		{"$1st", false},
		{"$a-b", false},
	}
	for _, tt := range tests {
		if got := isVariableName(tt.name); got != tt.want {
			t.Errorf("isVariableName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
