// Package backend абстрагирует низкоуровневые примитивы ввода.
// Движок собирает действия из этих примитивов и ничего не знает
// о конкретном драйвере.
package backend

import (
	"fmt"

	"go.uber.org/zap"
)

// Button — кнопка указателя.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ScrollDirection — направление прокрутки.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Driver — набор примитивов автоматизации ввода.
// Реализация должна быть безопасна для конкурентного вызова:
// воркеры движка разделяют один экземпляр.
type Driver interface {
	Name() string

	// Available сообщает, работоспособен ли драйвер на этой машине.
	// Проверяется один раз при выборе, не в горячем пути.
	Available() bool

	// Position возвращает текущие координаты курсора.
	Position() (x, y int)

	// MoveTo перемещает курсор в абсолютную позицию мгновенно.
	MoveTo(x, y int) error

	// Click нажимает и отпускает кнопку один раз.
	Click(button Button) error

	// Toggle зажимает (down=true) или отпускает кнопку. Для drag.
	Toggle(button Button, down bool) error

	// Scroll выполняет один дискретный тик прокрутки.
	Scroll(dir ScrollDirection) error

	// KeyTap нажимает и отпускает клавишу с опциональными модификаторами.
	KeyTap(key string, modifiers []string) error

	// KeyToggle зажимает или отпускает одну клавишу. Для комбинаций.
	KeyToggle(key string, down bool) error

	// TypeStr печатает литеральный текст.
	TypeStr(text string) error
}

// Select выбирает ровно один драйвер на старте: сперва предпочитаемый
// из конфигурации, затем любой доступный. Если не доступен ни один —
// фатальная ошибка инициализации.
func Select(preferred string, logger *zap.Logger) (Driver, error) {
	candidates := []Driver{NewRobotDriver(), NewCommandDriver()}

	// Предпочитаемый — в начало очереди
	for i, d := range candidates {
		if d.Name() == preferred && i != 0 {
			candidates[0], candidates[i] = candidates[i], candidates[0]
		}
	}

	for i, d := range candidates {
		if !d.Available() {
			logger.Warn("input driver unavailable", zap.String("driver", d.Name()))
			continue
		}
		if i > 0 || d.Name() != preferred {
			logger.Warn("falling back to input driver", zap.String("driver", d.Name()), zap.String("preferred", preferred))
		} else {
			logger.Info("input driver selected", zap.String("driver", d.Name()))
		}
		return d, nil
	}

	return nil, fmt.Errorf("no input automation driver available (tried robotgo, cmdtool)")
}
