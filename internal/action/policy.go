package action

// TypePolicy — правила допуска для одного типа действий.
type TypePolicy struct {
	Enabled bool `mapstructure:"enabled"`

	// Allow-list подтипов. Подтип вне списка отклоняется валидатором.
	Subtypes []string `mapstructure:"subtypes"`

	// Требовать подтверждение для всех действий этого типа
	ConfirmationRequired bool `mapstructure:"confirmation_required"`
}

// Policy — политика безопасности валидатора. Собирается из конфигурации,
// после старта только читается.
type Policy struct {
	Types map[Type]TypePolicy `mapstructure:"types"`

	// Deny-list опасных клавиатурных сочетаний (подстрочное совпадение,
	// без учёта регистра): "alt+f4", "ctrl+alt+del" и т.п.
	DangerousKeys []string `mapstructure:"dangerous_keys"`

	// Пути приложений. Blocked проверяется всегда; непустой Allowed
	// превращается в allow-list.
	BlockedPaths []string `mapstructure:"blocked_paths"`
	AllowedPaths []string `mapstructure:"allowed_paths"`

	// Границы параметров
	MaxCoordinate     int `mapstructure:"max_coordinate"`
	MaxTextLength     int `mapstructure:"max_text_length"`
	MaxSequenceLength int `mapstructure:"max_sequence_length"`
	MaxLoopIterations int `mapstructure:"max_loop_iterations"`

	// Вложенные макросы: по умолчанию запрещены, плюс жёсткий
	// ограничитель глубины рекурсии независимо от флага.
	AllowNestedMacros bool `mapstructure:"allow_nested_macros"`
	MaxMacroDepth     int  `mapstructure:"max_macro_depth"`

	// Глобальные флаги подтверждения по типам
	ConfirmApplicationLaunch bool `mapstructure:"confirm_application_launch"`
	ConfirmSystemCommands    bool `mapstructure:"confirm_system_commands"`
}

// DefaultPolicy — консервативные дефолты: System выключен,
// известные деструктивные сочетания запрещены.
func DefaultPolicy() Policy {
	return Policy{
		Types: map[Type]TypePolicy{
			TypePointer: {
				Enabled:  true,
				Subtypes: []string{PointerClick, PointerMoveTo, PointerDrag, PointerScroll},
			},
			TypeKeyboard: {
				Enabled:  true,
				Subtypes: []string{KeyboardKeyPress, KeyboardKeyCombination, KeyboardTypeText},
			},
			TypeApplication: {
				Enabled:              true,
				Subtypes:             []string{ApplicationLaunch, ApplicationClose, ApplicationFocus, ApplicationMinimize, ApplicationMaximize},
				ConfirmationRequired: true,
			},
			TypeMacro: {
				Enabled:              true,
				Subtypes:             []string{MacroExecute},
				ConfirmationRequired: true,
			},
			TypeSystem: {
				Enabled:  false,
				Subtypes: []string{"shutdown", "restart", "sleep", "lock"},
			},
		},
		DangerousKeys:     []string{"delete", "f4", "alt+f4", "ctrl+alt+del"},
		MaxCoordinate:     10000,
		MaxTextLength:     1000,
		MaxSequenceLength: 20,
		MaxLoopIterations: 10,
		AllowNestedMacros: false,
		MaxMacroDepth:     3,

		ConfirmApplicationLaunch: true,
		ConfirmSystemCommands:    true,
	}
}
