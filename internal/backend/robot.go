package backend

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
)

// RobotDriver — основной драйвер поверх robotgo.
// Все вызовы обёрнуты в recover: нативный слой robotgo способен
// паниковать на экзотических клавишах и headless-окружениях,
// а одна упавшая операция не должна ронять воркер.
type RobotDriver struct{}

func NewRobotDriver() *RobotDriver { return &RobotDriver{} }

func (d *RobotDriver) Name() string { return "robotgo" }

func (d *RobotDriver) Available() bool {
	// robotgo вкомпилирован всегда; единственная быстрая проверка —
	// что нативный слой отвечает на запрос позиции
	ok := true
	func() {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		robotgo.Location()
	}()
	return ok
}

func (d *RobotDriver) Position() (int, int) {
	return robotgo.Location()
}

func (d *RobotDriver) MoveTo(x, y int) error {
	return safe("move", func() error {
		robotgo.Move(x, y)
		return nil
	})
}

func (d *RobotDriver) Click(button Button) error {
	return safe("click", func() error {
		robotgo.Click(string(button), false)
		return nil
	})
}

func (d *RobotDriver) Toggle(button Button, down bool) error {
	return safe("toggle", func() error {
		dir := "down"
		if !down {
			dir = "up"
		}
		robotgo.Toggle(string(button), dir)
		return nil
	})
}

func (d *RobotDriver) Scroll(dir ScrollDirection) error {
	return safe("scroll", func() error {
		robotgo.ScrollDir(1, string(dir))
		return nil
	})
}

func (d *RobotDriver) KeyTap(key string, modifiers []string) error {
	return safe("keytap", func() error {
		mods := make([]interface{}, len(modifiers))
		for i, m := range modifiers {
			mods[i] = normalizeModifier(m)
		}
		return robotgo.KeyTap(key, mods...)
	})
}

func (d *RobotDriver) KeyToggle(key string, down bool) error {
	return safe("keytoggle", func() error {
		dir := "down"
		if !down {
			dir = "up"
		}
		return robotgo.KeyToggle(normalizeModifier(key), dir)
	})
}

func (d *RobotDriver) TypeStr(text string) error {
	return safe("typestr", func() error {
		robotgo.TypeStr(text)
		return nil
	})
}

// normalizeModifier приводит общеупотребимые имена модификаторов
// к формату robotgo.
func normalizeModifier(mod string) string {
	switch strings.ToLower(mod) {
	case "command", "cmd", "super", "win":
		return "cmd"
	case "control", "ctrl":
		return "ctrl"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	default:
		return mod
	}
}

// safe превращает панику нативного слоя в обычную ошибку.
func safe(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("robotgo %s panicked: %v", op, r)
		}
	}()
	return fn()
}
