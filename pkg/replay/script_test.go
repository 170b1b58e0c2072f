package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeScriptString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain text passes through",
			input:    "hello",
			expected: "hello",
		},
		{
			name:     "Single quotes are escaped",
			input:    "it's",
			expected: `it\'s`,
		},
		{
			name:     "Backslashes are escaped first",
			input:    `a\'b`,
			expected: `a\\\'b`,
		},
		{
			name:     "Newlines become literal escapes",
			input:    "line1\nline2",
			expected: `line1\nline2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeScriptString(tt.input))
		})
	}
}

func TestClickScript(t *testing.T) {
	tests := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{
			name:     "By id",
			locator:  Locator{Kind: LocatorID, Value: "submit"},
			expected: "() => { const el = document.getElementById('submit'); if (el) el.click(); return !!el; }",
		},
		{
			name:     "By css selector",
			locator:  Locator{Kind: LocatorCSS, Value: "button.primary"},
			expected: "() => { const el = document.querySelector('button.primary'); if (el) el.click(); return !!el; }",
		},
		{
			name:     "By xpath uses first ordered node",
			locator:  Locator{Kind: LocatorXPath, Value: "//button[1]"},
			expected: "() => { const el = document.evaluate('//button[1]', document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue; if (el) el.click(); return !!el; }",
		},
		{
			name:     "Unsupported locator degrades to a no-op",
			locator:  Locator{Kind: LocatorText, Value: "Sign in"},
			expected: "() => { return true; }",
		},
		{
			name:     "Quotes in selector are escaped",
			locator:  Locator{Kind: LocatorCSS, Value: "input[name='q']"},
			expected: `() => { const el = document.querySelector('input[name=\'q\']'); if (el) el.click(); return !!el; }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClickScript(tt.locator))
		})
	}
}

func TestInputAndSelectScripts(t *testing.T) {
	loc := Locator{Kind: LocatorID, Value: "username"}

	input := InputScript(loc, "demo")
	assert.Contains(t, input, "document.getElementById('username')")
	assert.Contains(t, input, "el.value = 'demo'")
	assert.Contains(t, input, "new Event('input', { bubbles: true })")

	sel := SelectScript(loc, "option-2")
	assert.Contains(t, sel, "el.value = 'option-2'")
	assert.Contains(t, sel, "new Event('change', { bubbles: true })")
}

func TestInputScriptEscapesValue(t *testing.T) {
	script := InputScript(Locator{Kind: LocatorID, Value: "bio"}, "it's\nme")
	assert.Contains(t, script, `el.value = 'it\'s\nme'`)
}

func TestNavigateScript(t *testing.T) {
	assert.Equal(t,
		"() => { window.location.href = 'https://example.com/login'; }",
		NavigateScript("https://example.com/login"))
}

func TestScrollScript(t *testing.T) {
	assert.Equal(t, "() => { window.scrollTo(0, 400); }", ScrollScript(0, 400))
}

func TestExistsScript(t *testing.T) {
	tests := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{
			name:     "By id",
			locator:  Locator{Kind: LocatorID, Value: "dashboard"},
			expected: "() => { return !!(document.getElementById('dashboard')); }",
		},
		{
			name:     "By css selector",
			locator:  Locator{Kind: LocatorCSS, Value: ".dashboard"},
			expected: "() => { return !!(document.querySelector('.dashboard')); }",
		},
		{
			name:     "Xpath asserts trivially true",
			locator:  Locator{Kind: LocatorXPath, Value: "//div"},
			expected: "() => { return true; }",
		},
		{
			name:     "No locator asserts trivially true",
			locator:  Locator{Kind: LocatorNone},
			expected: "() => { return true; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExistsScript(tt.locator))
		})
	}
}
