package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/backend"
)

// performPointer собирает действия указателя из примитивов драйвера:
// подводка к координатам, серии кликов, интерполяция перетаскивания,
// дискретные тики прокрутки.
func (e *Executor) performPointer(ctx context.Context, act action.Action) (bool, string, error) {
	p := act.Pointer
	if p == nil {
		p = &action.PointerParams{}
	}

	switch act.Subtype {
	case action.PointerClick:
		if p.X != nil && p.Y != nil {
			if err := e.driver.MoveTo(*p.X, *p.Y); err != nil {
				return false, "", err
			}
		}
		button := backend.Button(p.Button)
		if button == "" {
			button = backend.ButtonLeft
		}
		clicks := p.Clicks
		if clicks < 1 {
			clicks = 1
		}
		for i := 0; i < clicks; i++ {
			if err := e.driver.Click(button); err != nil {
				return false, "", err
			}
			if i < clicks-1 {
				if err := sleepCtx(ctx, e.cfg.ClickInterval); err != nil {
					return false, "", err
				}
			}
		}
		return true, fmt.Sprintf("pointer %s click executed", button), nil

	case action.PointerMoveTo:
		if p.X == nil || p.Y == nil {
			return false, "pointer move requires x and y coordinates", nil
		}
		curX, curY := e.driver.Position()
		if err := e.glide(ctx, curX, curY, *p.X, *p.Y, seconds(p.Duration)); err != nil {
			return false, "", err
		}
		return true, fmt.Sprintf("pointer moved to (%d, %d)", *p.X, *p.Y), nil

	case action.PointerDrag:
		startX, startY := e.driver.Position()
		if p.FromX != nil {
			startX = *p.FromX
		}
		if p.FromY != nil {
			startY = *p.FromY
		}
		endX, endY := p.ToX, p.ToY
		if endX == nil {
			endX = p.X
		}
		if endY == nil {
			endY = p.Y
		}
		if endX == nil || endY == nil {
			return false, "drag requires destination coordinates", nil
		}

		if err := e.driver.MoveTo(startX, startY); err != nil {
			return false, "", err
		}
		if err := e.driver.Toggle(backend.ButtonLeft, true); err != nil {
			return false, "", err
		}
		glideErr := e.glide(ctx, startX, startY, *endX, *endY, seconds(p.Duration))
		// Кнопку отпускаем в любом случае: зависший зажатый left
		// хуже проваленного перетаскивания
		if err := e.driver.Toggle(backend.ButtonLeft, false); err != nil && glideErr == nil {
			return false, "", err
		}
		if glideErr != nil {
			return false, "", glideErr
		}
		return true, fmt.Sprintf("pointer dragged to (%d, %d)", *endX, *endY), nil

	case action.PointerScroll:
		dir := backend.ScrollDirection(p.ScrollDirection)
		if dir == "" {
			dir = backend.ScrollUp
		}
		amount := p.ScrollAmount
		if amount < 1 {
			amount = 1
		}
		tick := e.cfg.ScrollTick
		if p.Duration > 0 {
			tick = seconds(p.Duration)
		}
		for i := 0; i < amount; i++ {
			if err := e.driver.Scroll(dir); err != nil {
				return false, "", err
			}
			if i < amount-1 {
				if err := sleepCtx(ctx, tick); err != nil {
					return false, "", err
				}
			}
		}
		return true, fmt.Sprintf("pointer scrolled %s %d steps", dir, amount), nil
	}

	return false, fmt.Sprintf("unsupported pointer action: %s", act.Subtype), nil
}

// performKeyboard: одиночные нажатия, аккорды и посимвольный набор.
// Текст печатается литерально, символ за символом — приложения,
// чувствительные к таймингу ввода, не переживают батчинг.
func (e *Executor) performKeyboard(ctx context.Context, act action.Action) (bool, string, error) {
	p := act.Keyboard
	if p == nil {
		return false, "keyboard parameters are missing", nil
	}

	interval := e.cfg.KeyInterval
	if p.Interval > 0 {
		interval = seconds(p.Interval)
	}

	switch act.Subtype {
	case action.KeyboardKeyPress:
		if len(p.Keys) == 0 {
			return false, "key press requires at least one key", nil
		}
		for i, key := range p.Keys {
			if err := e.driver.KeyTap(key, nil); err != nil {
				return false, "", err
			}
			if len(p.Keys) > 1 && i < len(p.Keys)-1 {
				if err := sleepCtx(ctx, interval); err != nil {
					return false, "", err
				}
			}
		}
		return true, fmt.Sprintf("key press executed: %s", strings.Join(p.Keys, ", ")), nil

	case action.KeyboardKeyCombination:
		// Модификаторы зажимаются первыми, отпускается всё
		// в обратном порядке с короткой фиксированной паузой
		pressed := make([]string, 0, len(p.Modifiers)+len(p.Keys))
		release := func() {
			for i := len(pressed) - 1; i >= 0; i-- {
				_ = e.driver.KeyToggle(pressed[i], false)
				time.Sleep(10 * time.Millisecond)
			}
		}

		for _, key := range append(append([]string{}, p.Modifiers...), p.Keys...) {
			if err := e.driver.KeyToggle(key, true); err != nil {
				release()
				return false, "", err
			}
			pressed = append(pressed, key)
		}
		release()

		combo := strings.Join(append(append([]string{}, p.Modifiers...), p.Keys...), "+")
		return true, fmt.Sprintf("key combination executed: %s", combo), nil

	case action.KeyboardTypeText:
		runes := []rune(p.Text)
		for i, ch := range runes {
			if err := e.driver.TypeStr(string(ch)); err != nil {
				return false, "", err
			}
			// Пауза только между символами, после последнего не нужна
			if i < len(runes)-1 {
				if err := sleepCtx(ctx, interval); err != nil {
					return false, "", err
				}
			}
		}
		return true, fmt.Sprintf("text typed: %d characters", len(runes)), nil
	}

	return false, fmt.Sprintf("unsupported keyboard action: %s", act.Subtype), nil
}

/// performApplication: запуск процесса. Close/focus/minimize/maximize —
// явные заглушки с неуспехом, не тихий успех.
func (e *Executor) performApplication(act action.Action) (bool, string, error) {
	p := act.Application
	if p == nil {
		p = &action.ApplicationParams{}
	}

	switch act.Subtype {
	case action.ApplicationLaunch:
		if p.Path == "" {
			return false, "application path is required", nil
		}

		var cmd *exec.Cmd
		if runtime.GOOS == "windows" {
			// start отвязывает процесс от консоли и разрешает
			// ассоциации оболочки (ярлыки, документы)
			args := append([]string{"/c", "start", "", p.Path}, p.Arguments...)
			cmd = exec.Command("cmd", args...)
		} else {
			cmd = exec.Command(p.Path, p.Arguments...)
		}
		cmd.Dir = p.WorkingDirectory

		if err := cmd.Start(); err != nil {
			switch {
			case errors.Is(err, os.ErrNotExist), errors.Is(err, exec.ErrNotFound):
				return false, fmt.Sprintf("application not found: %s", p.Path), nil
			case errors.Is(err, os.ErrPermission):
				return false, fmt.Sprintf("permission denied: %s", p.Path), nil
			default:
				return false, fmt.Sprintf("failed to launch application: %v", err), nil
			}
		}
		// Процесс живёт дальше сам, зомби нам не нужны
		go func() { _ = cmd.Wait() }()

		return true, fmt.Sprintf("application launched: %s", p.Path), nil

	case action.ApplicationClose, action.ApplicationFocus,
		action.ApplicationMinimize, action.ApplicationMaximize:
		return false, fmt.Sprintf("application %s is not implemented", act.Subtype), nil
	}

	return false, fmt.Sprintf("unsupported application action: %s", act.Subtype), nil
}

// glide перемещает курсор с опциональной временной интерполяцией.
func (e *Executor) glide(ctx context.Context, fromX, fromY, toX, toY int, duration time.Duration) error {
	if duration <= 0 {
		return e.driver.MoveTo(toX, toY)
	}
	steps := int(duration / e.cfg.DragStep)
	if steps < 1 {
		steps = 1
	}
	dx := float64(toX-fromX) / float64(steps)
	dy := float64(toY-fromY) / float64(steps)
	for i := 1; i <= steps; i++ {
		if err := e.driver.MoveTo(fromX+int(dx*float64(i)), fromY+int(dy*float64(i))); err != nil {
			return err
		}
		if err := sleepCtx(ctx, e.cfg.DragStep); err != nil {
			return err
		}
	}
	return nil
}

// sleepCtx — пауза, прерываемая дедлайном диспетчеризации.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
