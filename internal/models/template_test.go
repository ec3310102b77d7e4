package models

import "testing"

func TestTemplateRender(t *testing.T) {
	tpl := MessageTemplate{Body: "Hi {{1}}, your appointment is on {{2}} at {{3}}."}
	got := tpl.Render([]string{"Asha", "Monday", "10:30"})
	want := "Hi Asha, your appointment is on Monday at 10:30."
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTemplateRenderMissingParamsKeepPlaceholders(t *testing.T) {
	tpl := MessageTemplate{Body: "Hi {{1}}, see you on {{2}}."}
	got := tpl.Render([]string{"Asha"})
	want := "Hi Asha, see you on {{2}}."
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTemplateRenderRepeatedPlaceholder(t *testing.T) {
	tpl := MessageTemplate{Body: "{{1}} and {{1}} again"}
	if got := tpl.Render([]string{"x"}); got != "x and x again" {
		t.Errorf("Render = %q", got)
	}
}

func TestTemplateRenderNoParams(t *testing.T) {
	tpl := MessageTemplate{Body: "plain body"}
	if got := tpl.Render(nil); got != "plain body" {
		t.Errorf("Render = %q", got)
	}
}
