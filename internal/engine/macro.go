package engine

import (
	"context"
	"fmt"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
)

// performMacro — под-движок макросов. Чисто последовательный:
// шаг обязан завершиться до начала следующего, иначе теряется
// порядок ввода. Никакой внутренней конкуренции.
//
// Терминальные состояния: успех (все циклы × все шаги) либо отказ
// на первом же неуспешном шаге, пустой последовательности или
// взведённом интерлоке — с числом уже выполненных шагов в сообщении.
func (e *Executor) performMacro(ctx context.Context, act action.Action, depth int) (bool, string, error) {
	p := act.Macro
	if p == nil || len(p.Sequence) == 0 {
		return false, "macro sequence is empty", nil
	}

	// Страховка от рекурсии сверх политики: валидатор режет вложенность
	// раньше, но под-движок не доверяет этому слепо
	if depth >= e.cfg.MaxMacroDepth {
		return false, fmt.Sprintf("macro recursion depth exceeded (max %d)", e.cfg.MaxMacroDepth), nil
	}

	loops := p.LoopCount
	if loops < 1 {
		loops = 1
	}
	delay := e.cfg.StepDelay
	if p.DelayBetweenActions > 0 {
		delay = seconds(p.DelayBetweenActions)
	}

	total := loops * len(p.Sequence)
	executed := 0

	for loop := 0; loop < loops; loop++ {
		for i, sub := range p.Sequence {
			// Интерлок проверяется между шагами; начатый шаг
			// дорабатывает до конца
			if e.stopped.Load() {
				return false, fmt.Sprintf("macro stopped by emergency stop after %d actions", executed), nil
			}
			if err := ctx.Err(); err != nil {
				return false, "", err
			}

			// Строго синхронно через примитив диспетчеризации:
			// итог шага попадает в журнал, но наружу макрос
			// отчитывается одним результатом
			r := e.dispatchDepth(ctx, sub, depth+1)
			executed++

			if !r.Success {
				return false, fmt.Sprintf("macro failed at action %d (loop %d): %s", i+1, loop+1, r.Message), nil
			}

			// Пауза между шагами, кроме самого последнего
			if executed < total {
				if err := sleepCtx(ctx, delay); err != nil {
					return false, "", err
				}
			}
		}
	}

	return true, fmt.Sprintf("macro executed successfully: %d actions", executed), nil
}
