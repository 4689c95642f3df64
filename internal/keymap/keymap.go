// Package keymap translates platform key identifiers to canonical key names.
package keymap

import (
	"slices"
	"strings"
)

// Translator maps a raw key identifier to a canonical key name.
type Translator interface {
	Canonical(raw string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(raw string) string

// Canonical implements Translator.
func (f TranslatorFunc) Canonical(raw string) string {
	return f(raw)
}

// Canonical key names that are not a single letter or digit.
var named = []string{
	"space", "return", "escape", "tab", "backspace", "delete", "insert",
	"up", "down", "left", "right", "home", "end", "pageup", "pagedown",
	"lshift", "rshift", "lctrl", "rctrl", "lalt", "ralt", "lmeta", "rmeta",
	"capslock", "comma", "period", "slash", "semicolon", "apostrophe",
	"bracketleft", "bracketright", "backslash", "minus", "equal", "grave",
	"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12",
	"num_0", "num_1", "num_2", "num_3", "num_4", "num_5", "num_6", "num_7",
	"num_8", "num_9", "num_enter", "num_add", "num_subtract", "num_multiply",
	"num_divide", "num_decimal",
}

var known = func() map[string]struct{} {
	set := make(map[string]struct{}, len(named)+36)
	for _, n := range named {
		set[n] = struct{}{}
	}
	for r := 'a'; r <= 'z'; r++ {
		set[string(r)] = struct{}{}
	}
	for r := '0'; r <= '9'; r++ {
		set[string(r)] = struct{}{}
	}
	return set
}()

// Known reports whether name is part of the canonical vocabulary.
func Known(name string) bool {
	_, ok := known[name]
	return ok
}

// Names returns the canonical vocabulary in sorted order.
func Names() []string {
	out := make([]string, 0, len(known))
	for n := range known {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// punctuation maps US-layout symbols, shifted or not, to the key producing them.
var punctuation = map[string]string{
	",": "comma", "<": "comma",
	".": "period", ">": "period",
	"/": "slash", "?": "slash",
	";": "semicolon", ":": "semicolon",
	"'": "apostrophe", "\"": "apostrophe",
	"[": "bracketleft", "{": "bracketleft",
	"]": "bracketright", "}": "bracketright",
	"\\": "backslash", "|": "backslash",
	"-": "minus", "_": "minus",
	"=": "equal", "+": "equal",
	"`": "grave", "~": "grave",
	"!": "1", "@": "2", "#": "3", "$": "4", "%": "5",
	"^": "6", "&": "7", "*": "8", "(": "9", ")": "0",
}

var terminalNames = map[string]string{
	" ":         "space",
	"space":     "space",
	"enter":     "return",
	"esc":       "escape",
	"tab":       "tab",
	"shift+tab": "tab",
	"backspace": "backspace",
	"delete":    "delete",
	"insert":    "insert",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"home":      "home",
	"end":       "end",
	"pgup":      "pageup",
	"pgdown":    "pagedown",
}

// Terminal translates bubbletea key strings such as "a", "A", "enter" or
// "alt+x". Shifted characters map to the physical key that produced them.
var Terminal Translator = TranslatorFunc(terminalCanonical)

func terminalCanonical(raw string) string {
	if name, ok := terminalNames[raw]; ok {
		return name
	}
	key := strings.TrimPrefix(raw, "alt+")
	if name, ok := terminalNames[key]; ok {
		return name
	}
	if name, ok := punctuation[key]; ok {
		return name
	}
	lower := strings.ToLower(key)
	if Known(lower) {
		return lower
	}
	return strings.ToLower(raw)
}

var webNames = map[string]string{
	"Space":          "space",
	"Enter":          "return",
	"Escape":         "escape",
	"Tab":            "tab",
	"Backspace":      "backspace",
	"Delete":         "delete",
	"Insert":         "insert",
	"ArrowUp":        "up",
	"ArrowDown":      "down",
	"ArrowLeft":      "left",
	"ArrowRight":     "right",
	"Home":           "home",
	"End":            "end",
	"PageUp":         "pageup",
	"PageDown":       "pagedown",
	"ShiftLeft":      "lshift",
	"ShiftRight":     "rshift",
	"ControlLeft":    "lctrl",
	"ControlRight":   "rctrl",
	"AltLeft":        "lalt",
	"AltRight":       "ralt",
	"MetaLeft":       "lmeta",
	"MetaRight":      "rmeta",
	"CapsLock":       "capslock",
	"Comma":          "comma",
	"Period":         "period",
	"Slash":          "slash",
	"Semicolon":      "semicolon",
	"Quote":          "apostrophe",
	"BracketLeft":    "bracketleft",
	"BracketRight":   "bracketright",
	"Backslash":      "backslash",
	"Minus":          "minus",
	"Equal":          "equal",
	"Backquote":      "grave",
	"NumpadEnter":    "num_enter",
	"NumpadAdd":      "num_add",
	"NumpadSubtract": "num_subtract",
	"NumpadMultiply": "num_multiply",
	"NumpadDivide":   "num_divide",
	"NumpadDecimal":  "num_decimal",
}

// Web translates DOM KeyboardEvent.code values such as "KeyA", "Digit1" or
// "ShiftLeft".
var Web Translator = TranslatorFunc(webCanonical)

func webCanonical(raw string) string {
	if name, ok := webNames[raw]; ok {
		return name
	}
	switch {
	case strings.HasPrefix(raw, "Key") && len(raw) == 4:
		return strings.ToLower(raw[3:])
	case strings.HasPrefix(raw, "Digit") && len(raw) == 6:
		return raw[5:]
	case strings.HasPrefix(raw, "Numpad") && len(raw) == 7:
		return "num_" + raw[6:]
	case len(raw) >= 2 && raw[0] == 'F':
		if lower := strings.ToLower(raw); Known(lower) {
			return lower
		}
	}
	return strings.ToLower(raw)
}

// ByName returns the translator registered under name.
func ByName(name string) (Translator, bool) {
	switch strings.ToLower(name) {
	case "terminal", "":
		return Terminal, true
	case "web":
		return Web, true
	default:
		return nil, false
	}
}
