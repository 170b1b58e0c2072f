package replay

import (
	"fmt"
	"strings"
)

// The script compiler is the only place script strings are built and user
// payloads are escaped. Scripts are emitted as argument-less arrow functions
// so they can be handed straight to a DevTools Runtime.evaluate style call.

// escapeScriptString makes a payload safe for single-quoted interpolation.
func escapeScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// elementLookup returns a JS expression resolving the locator to an element
// or null. XPath lookups use first-ordered-node evaluation.
func elementLookup(loc Locator) string {
	value := escapeScriptString(loc.Value)
	switch loc.Kind {
	case LocatorID:
		return fmt.Sprintf("document.getElementById('%s')", value)
	case LocatorCSS:
		return fmt.Sprintf("document.querySelector('%s')", value)
	case LocatorXPath:
		return fmt.Sprintf(
			"document.evaluate('%s', document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			value)
	default:
		return "null"
	}
}

// ClickScript builds a script that clicks the located element. Locator kinds
// without a lookup degrade to a no-op.
func ClickScript(loc Locator) string {
	switch loc.Kind {
	case LocatorID, LocatorCSS, LocatorXPath:
		return fmt.Sprintf("() => { const el = %s; if (el) el.click(); return !!el; }", elementLookup(loc))
	default:
		return "() => { return true; }"
	}
}

// InputScript builds a script that sets the located element's value and
// dispatches an input event.
func InputScript(loc Locator, value string) string {
	return setValueScript(loc, value, "input")
}

// SelectScript builds a script that sets the located element's value and
// dispatches a change event.
func SelectScript(loc Locator, value string) string {
	return setValueScript(loc, value, "change")
}

func setValueScript(loc Locator, value, event string) string {
	return fmt.Sprintf(
		"() => { const el = %s; if (el) { el.value = '%s'; el.dispatchEvent(new Event('%s', { bubbles: true })); } return !!el; }",
		elementLookup(loc), escapeScriptString(value), event)
}

// NavigateScript builds a script that points the page at the given URL.
func NavigateScript(url string) string {
	return fmt.Sprintf("() => { window.location.href = '%s'; }", escapeScriptString(url))
}

// ScrollScript builds a script that scrolls the page to the given position.
func ScrollScript(x, y int) string {
	return fmt.Sprintf("() => { window.scrollTo(%d, %d); }", x, y)
}

// ExistsScript builds a script that reports whether the located element
// exists. Only id and css lookups are supported; other kinds trivially
// assert true.
func ExistsScript(loc Locator) string {
	switch loc.Kind {
	case LocatorID, LocatorCSS:
		return fmt.Sprintf("() => { return !!(%s); }", elementLookup(loc))
	default:
		return "() => { return true; }"
	}
}
