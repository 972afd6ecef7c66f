package backend

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// CommandDriver — запасной драйвер поверх xdotool (X11).
// Не тянет нативных зависимостей: каждый примитив — короткий
// вызов внешней утилиты. Медленнее robotgo, но спасает окружения,
// где нативный слой недоступен.
type CommandDriver struct {
	tool string
}

func NewCommandDriver() *CommandDriver {
	return &CommandDriver{tool: "xdotool"}
}

func (d *CommandDriver) Name() string { return "cmdtool" }

func (d *CommandDriver) Available() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	_, err := exec.LookPath(d.tool)
	return err == nil
}

func (d *CommandDriver) run(args ...string) error {
	out, err := exec.Command(d.tool, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v (%s)", d.tool, args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *CommandDriver) Position() (int, int) {
	out, err := exec.Command(d.tool, "getmouselocation", "--shell").Output()
	if err != nil {
		return 0, 0
	}
	// Формат вывода: X=123\nY=456\nSCREEN=0\nWINDOW=...
	var x, y int
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := strings.CutPrefix(line, "X="); ok {
			x, _ = strconv.Atoi(strings.TrimSpace(v))
		}
		if v, ok := strings.CutPrefix(line, "Y="); ok {
			y, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	return x, y
}

func (d *CommandDriver) MoveTo(x, y int) error {
	return d.run("mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *CommandDriver) Click(button Button) error {
	return d.run("click", xdoButton(button))
}

func (d *CommandDriver) Toggle(button Button, down bool) error {
	verb := "mousedown"
	if !down {
		verb = "mouseup"
	}
	return d.run(verb, xdoButton(button))
}

func (d *CommandDriver) Scroll(dir ScrollDirection) error {
	// Колесо и горизонтальная прокрутка — кнопки 4..7 в X11
	btn := map[ScrollDirection]string{
		ScrollUp:    "4",
		ScrollDown:  "5",
		ScrollLeft:  "6",
		ScrollRight: "7",
	}[dir]
	if btn == "" {
		return fmt.Errorf("unknown scroll direction: %s", dir)
	}
	return d.run("click", btn)
}

func (d *CommandDriver) KeyTap(key string, modifiers []string) error {
	combo := key
	if len(modifiers) > 0 {
		combo = strings.Join(append(xdoModifiers(modifiers), key), "+")
	}
	return d.run("key", combo)
}

func (d *CommandDriver) KeyToggle(key string, down bool) error {
	verb := "keydown"
	if !down {
		verb = "keyup"
	}
	return d.run(verb, xdoKey(key))
}

func (d *CommandDriver) TypeStr(text string) error {
	return d.run("type", "--delay", "0", text)
}

func xdoButton(b Button) string {
	switch b {
	case ButtonRight:
		return "3"
	case ButtonMiddle:
		return "2"
	default:
		return "1"
	}
}

func xdoModifiers(mods []string) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = xdoKey(m)
	}
	return out
}

// xdoKey переводит наши имена клавиш в keysym-имена xdotool.
func xdoKey(key string) string {
	switch strings.ToLower(key) {
	case "ctrl", "control":
		return "ctrl"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	case "cmd", "command", "super", "win":
		return "super"
	case "enter", "return":
		return "Return"
	case "esc", "escape":
		return "Escape"
	case "tab":
		return "Tab"
	case "space":
		return "space"
	case "backspace":
		return "BackSpace"
	case "delete":
		return "Delete"
	case "up", "down", "left", "right":
		return strings.ToUpper(key[:1]) + key[1:]
	default:
		return key
	}
}
