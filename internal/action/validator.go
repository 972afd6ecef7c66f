package action

import (
	"fmt"
	"strings"
)

// Validator — чистый слой проверки допустимости действий.
// Никаких побочных эффектов и I/O: только политика и параметры.
// Правила применяются по порядку, первая ошибка — вердикт.
type Validator struct {
	policy Policy
}

func NewValidator(p Policy) *Validator {
	if p.MaxMacroDepth <= 0 {
		p.MaxMacroDepth = 3
	}
	return &Validator{policy: p}
}

// Policy возвращает действующую политику (для чтения).
func (v *Validator) Policy() Policy { return v.policy }

// Validate решает, допустимо ли действие: (ok, причина отказа).
func (v *Validator) Validate(a Action) (bool, string) {
	return v.validate(a, 0)
}

func (v *Validator) validate(a Action, depth int) (bool, string) {
	// 1. Тип должен быть включён политикой
	tp, known := v.policy.Types[a.Type]
	if !known || !tp.Enabled {
		return false, fmt.Sprintf("action type %q is disabled", a.Type)
	}

	// 2. Подтип должен быть в allow-list типа
	if !contains(tp.Subtypes, a.Subtype) {
		return false, fmt.Sprintf("action subtype %q is not allowed for type %q", a.Subtype, a.Type)
	}

	// 3. Типоспецифичные проверки
	switch a.Type {
	case TypePointer:
		return v.validatePointer(a)
	case TypeKeyboard:
		return v.validateKeyboard(a)
	case TypeApplication:
		return v.validateApplication(a)
	case TypeMacro:
		return v.validateMacro(a, depth)
	case TypeSystem:
		// Сюда попадаем, только если System явно включён политикой
		return true, ""
	}

	return true, ""
}

func (v *Validator) validatePointer(a Action) (bool, string) {
	p := a.Pointer
	if p == nil {
		// Клик без параметров допустим: текущая позиция, левая кнопка
		return true, ""
	}

	for _, c := range []struct {
		name string
		val  *int
	}{
		{"x", p.X}, {"y", p.Y},
		{"from_x", p.FromX}, {"from_y", p.FromY},
		{"to_x", p.ToX}, {"to_y", p.ToY},
	} {
		if c.val != nil && (*c.val < 0 || *c.val > v.policy.MaxCoordinate) {
			return false, fmt.Sprintf("pointer coordinate %s out of range [0, %d]", c.name, v.policy.MaxCoordinate)
		}
	}

	switch p.Button {
	case "", "left", "right", "middle":
	default:
		return false, fmt.Sprintf("invalid pointer button: %q", p.Button)
	}

	return true, ""
}

func (v *Validator) validateKeyboard(a Action) (bool, string) {
	p := a.Keyboard
	if p == nil {
		return false, "keyboard parameters are missing"
	}

	if a.Subtype == KeyboardKeyPress || a.Subtype == KeyboardKeyCombination {
		// Нормализованная строка "mod+...+key" сверяется с deny-list
		// по подстроке без учёта регистра
		combo := strings.ToLower(strings.Join(append(append([]string{}, p.Modifiers...), p.Keys...), "+"))
		for _, dangerous := range v.policy.DangerousKeys {
			if dangerous != "" && strings.Contains(combo, strings.ToLower(dangerous)) {
				return false, fmt.Sprintf("dangerous key combination detected: %s", dangerous)
			}
		}
	}

	if a.Subtype == KeyboardTypeText {
		if n := len([]rune(p.Text)); n > v.policy.MaxTextLength {
			return false, fmt.Sprintf("text too long: %d characters (max %d)", n, v.policy.MaxTextLength)
		}
	}

	return true, ""
}

func (v *Validator) validateApplication(a Action) (bool, string) {
	p := a.Application
	if a.Subtype != ApplicationLaunch {
		return true, ""
	}
	if p == nil || p.Path == "" {
		return false, "application path is required for launch action"
	}

	path := strings.ToLower(p.Path)
	for _, blocked := range v.policy.BlockedPaths {
		if blocked != "" && strings.Contains(path, strings.ToLower(blocked)) {
			return false, fmt.Sprintf("application path is blocked: %s", blocked)
		}
	}

	if len(v.policy.AllowedPaths) > 0 {
		allowed := false
		for _, ap := range v.policy.AllowedPaths {
			if ap != "" && strings.Contains(path, strings.ToLower(ap)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, "application path is not in allowed list"
		}
	}

	return true, ""
}

func (v *Validator) validateMacro(a Action, depth int) (bool, string) {
	p := a.Macro
	if p == nil {
		// Пустая последовательность проходит валидацию и падает
		// при исполнении — асимметрия сохранена намеренно
		return true, ""
	}

	if depth >= v.policy.MaxMacroDepth {
		return false, fmt.Sprintf("macro recursion depth exceeded (max %d)", v.policy.MaxMacroDepth)
	}

	if len(p.Sequence) > v.policy.MaxSequenceLength {
		return false, fmt.Sprintf("macro sequence too long: %d actions (max %d)", len(p.Sequence), v.policy.MaxSequenceLength)
	}

	if p.LoopCount > v.policy.MaxLoopIterations {
		return false, fmt.Sprintf("macro loop count too high: %d (max %d)", p.LoopCount, v.policy.MaxLoopIterations)
	}

	for i, sub := range p.Sequence {
		if sub.Type == TypeMacro && !v.policy.AllowNestedMacros {
			return false, fmt.Sprintf("invalid action at position %d: nested macros are not allowed", i+1)
		}
		if ok, reason := v.validate(sub, depth+1); !ok {
			return false, fmt.Sprintf("invalid action at position %d: %s", i+1, reason)
		}
	}

	return true, ""
}

// RequiresConfirmation — нужен ли интерактивный запрос перед отправкой.
// Семантика OR: флаг типа, флаг экземпляра или глобальный флаг политики.
// Совещательная проверка: движок на ней не блокируется, подтверждение —
// ответственность вызывающего слоя.
func (v *Validator) RequiresConfirmation(a Action) bool {
	if tp, ok := v.policy.Types[a.Type]; ok && tp.ConfirmationRequired {
		return true
	}
	if a.RequiresConfirmation {
		return true
	}
	if a.Type == TypeApplication && v.policy.ConfirmApplicationLaunch {
		return true
	}
	if a.Type == TypeSystem && v.policy.ConfirmSystemCommands {
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
