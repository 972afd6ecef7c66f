package backend

import "testing"

func TestXdoKeyMapping(t *testing.T) {
	cases := map[string]string{
		"ctrl":      "ctrl",
		"Control":   "ctrl",
		"cmd":       "super",
		"win":       "super",
		"enter":     "Return",
		"esc":       "Escape",
		"backspace": "BackSpace",
		"delete":    "Delete",
		"up":        "Up",
		"left":      "Left",
		"a":         "a",
		"F5":        "F5", // Незнакомые имена проходят как есть
	}
	for in, want := range cases {
		if got := xdoKey(in); got != want {
			t.Errorf("xdoKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestXdoButtonMapping(t *testing.T) {
	cases := map[Button]string{
		ButtonLeft:   "1",
		ButtonMiddle: "2",
		ButtonRight:  "3",
		Button(""):   "1", // Пустая кнопка — левая
	}
	for in, want := range cases {
		if got := xdoButton(in); got != want {
			t.Errorf("xdoButton(%q) = %q, want %q", in, got, want)
		}
	}
}
