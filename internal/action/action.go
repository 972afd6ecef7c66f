package action

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type — закрытое множество типов действий. System зарезервирован
// и по умолчанию запрещён политикой.
type Type string

const (
	TypePointer     Type = "pointer"
	TypeKeyboard    Type = "keyboard"
	TypeApplication Type = "application"
	TypeMacro       Type = "macro"
	TypeSystem      Type = "system"
)

// Подтипы указателя
const (
	PointerClick  = "click"
	PointerMoveTo = "move_to"
	PointerDrag   = "drag"
	PointerScroll = "scroll"
)

// Подтипы клавиатуры
const (
	KeyboardKeyPress       = "key_press"
	KeyboardKeyCombination = "key_combination"
	KeyboardTypeText       = "type_text"
)

// Подтипы приложений
const (
	ApplicationLaunch   = "launch"
	ApplicationClose    = "close"
	ApplicationFocus    = "focus"
	ApplicationMinimize = "minimize"
	ApplicationMaximize = "maximize"
)

// Подтип макроса
const MacroExecute = "execute"

// PointerParams — параметры действий указателя.
// Координаты — указатели: nil означает «использовать текущую позицию курсора».
type PointerParams struct {
	X     *int `json:"x,omitempty"`
	Y     *int `json:"y,omitempty"`
	FromX *int `json:"from_x,omitempty"`
	FromY *int `json:"from_y,omitempty"`
	ToX   *int `json:"to_x,omitempty"`
	ToY   *int `json:"to_y,omitempty"`

	Button string `json:"button,omitempty"` // left, right, middle
	Clicks int    `json:"clicks,omitempty"`

	// Длительность перемещения/перетаскивания в секундах, 0 — мгновенно
	Duration float64 `json:"duration,omitempty"`

	ScrollDirection string `json:"scroll_direction,omitempty"` // up, down, left, right
	ScrollAmount    int    `json:"scroll_amount,omitempty"`
}

// KeyboardParams — параметры клавиатурных действий.
type KeyboardParams struct {
	Keys []string `json:"keys,omitempty"`
	Text string   `json:"text,omitempty"`

	// Модификаторы зажимаются перед основными клавишами
	// и отпускаются после них в обратном порядке
	Modifiers []string `json:"modifiers,omitempty"`

	// Пауза между дискретными нажатиями, секунды
	Interval float64 `json:"interval,omitempty"`
}

// ApplicationParams — параметры запуска/управления приложением.
type ApplicationParams struct {
	Path             string   `json:"path,omitempty"`
	Arguments        []string `json:"arguments,omitempty"`
	WorkingDirectory string   `json:"working_directory,omitempty"`
}

// MacroParams — упорядоченная последовательность вложенных действий.
type MacroParams struct {
	Sequence  []Action `json:"sequence,omitempty"`
	LoopCount int      `json:"loop_count,omitempty"`

	// Пауза между шагами, секунды. 0 — берётся дефолт движка.
	DelayBetweenActions float64 `json:"delay_between_actions,omitempty"`
}

// Action — единица работы движка. Неизменяема по соглашению:
// после начала валидации никто не мутирует объект.
// Вариант параметров определяется полем Type (ровно одно из
// Pointer/Keyboard/Application/Macro заполнено).
type Action struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Subtype string `json:"subtype"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Enabled              bool `json:"enabled"`
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`

	// Верхняя граница времени исполнения, секунды.
	// Движок превращает её в дедлайн контекста диспетчеризации.
	Timeout float64 `json:"timeout,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Pointer     *PointerParams     `json:"pointer,omitempty"`
	Keyboard    *KeyboardParams    `json:"keyboard,omitempty"`
	Application *ApplicationParams `json:"application,omitempty"`
	Macro       *MacroParams       `json:"macro,omitempty"`
}

// New создаёт действие с присвоенным ID и таймстемпом.
func New(t Type, subtype string) Action {
	return Action{
		ID:        uuid.New().String(),
		Type:      t,
		Subtype:   subtype,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

// Decode восстанавливает действие из его JSON-представления.
// Пустой ID дополняется, чтобы результат всегда был адресуем в истории.
func Decode(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	if a.Type == "" {
		return Action{}, fmt.Errorf("decode action: missing type")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return a, nil
}

// Encode сериализует действие в JSON для хранения и передачи.
func (a Action) Encode() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}
	return data, nil
}

// Label — человекочитаемая метка для логов и уведомлений.
func (a Action) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.Type) + "." + a.Subtype
}

// IntPtr — хелпер для литеральных координат в параметрах.
func IntPtr(v int) *int { return &v }
